package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"codeberg.org/mutker/mongeu/internal/config"
	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/gpu"
	"codeberg.org/mutker/mongeu/internal/journal"
	"codeberg.org/mutker/mongeu/internal/logger"
	"codeberg.org/mutker/mongeu/internal/metrics"
	"codeberg.org/mutker/mongeu/internal/pid"
	"codeberg.org/mutker/mongeu/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	// simulatedPower is the draw of every fake device in milliwatts
	simulatedPower = 100000
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Level(), logger.IsService())
	logger.Debug().Msg("Config loaded")

	if cfg.Level() != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := serve(cfg); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("Service failed")
		}
		logger.Fatal().Err(err).Msg("Service failed")
	}
}

func serve(cfg *config.Config) error {
	errFactory := errors.New()

	if cfg.PIDFile != "" {
		if err := pid.Write(cfg.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := pid.Remove(cfg.PIDFile); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	telemetry := openTelemetry(cfg)
	if err := telemetry.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := telemetry.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("Failed to shut down telemetry")
		}
	}()

	journalCfg := journal.DefaultConfig()
	journalCfg.Enabled = cfg.Journal.Enabled
	journalCfg.Path = cfg.Journal.Path
	j, err := journal.NewService(journalCfg, logger.New("journal"))
	if err != nil {
		return err
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close journal")
		}
	}()

	var (
		store     *energy.Store
		observers energy.Observers
		serverOps []server.Option
	)

	if cfg.Metrics.Enabled {
		m, err := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, func() int {
			return store.Len()
		})
		if err != nil {
			return err
		}
		observers = append(observers, m)
		serverOps = append(serverOps, server.WithMetrics(m))
	}
	if cfg.Journal.Enabled {
		observers = append(observers, journal.Observer(j, logger.New("journal")))
	}

	store = energy.NewStore(energy.WithObserver(observers))
	collector := energy.NewCollector(store, energy.GCConfig{
		MinAge:       cfg.GCMinAge(),
		MinCampaigns: cfg.GC.MinCampaigns,
	}, logger.New("gc"))

	srv := server.New(server.Config{
		BaseURI:         cfg.RedirectBase(),
		Oneshot:         cfg.Oneshot.Enabled,
		OneshotDuration: cfg.OneshotDuration(),
		MaxAge:          cfg.MaxAge(),
		Version:         version,
	}, telemetry, store, serverOps...)

	var g run.Group

	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return collector.Run(ctx)
		}, func(error) {
			cancel()
		})
	}

	for _, addr := range cfg.ListenAddrs {
		l, err := server.Listen(addr, cfg.ListenPort)
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Handler:           srv.Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}

		g.Add(func() error {
			logger.Info().Str("address", l.Addr().String()).Msg("Listening")
			if err := httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Str("address", l.Addr().String()).Msg("Graceful shutdown failed")
			}
		})
	}

	logger.Info().
		Str("version", version).
		Int("listeners", len(cfg.ListenAddrs)).
		Bool("oneshot", cfg.Oneshot.Enabled).
		Bool("metrics", cfg.Metrics.Enabled).
		Bool("journal", cfg.Journal.Enabled).
		Msg("Starting mongeu")

	err = g.Run()

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		logger.Info().Str("signal", sigErr.Signal.String()).Msg("Shutting down")
		return nil
	}
	if err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func openTelemetry(cfg *config.Config) gpu.Telemetry {
	if cfg.Dev.FakeDevices > 0 {
		logger.Warn().
			Int("devices", cfg.Dev.FakeDevices).
			Msg("Serving simulated devices, energy readings are not real")
		return gpu.NewSimulatedBackend(cfg.Dev.FakeDevices, simulatedPower)
	}

	return gpu.NewNVML()
}
