package config

import (
	"math"
	"net"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath      = "/etc/mongeu.toml"
	DefaultEnvPrefix       = "MONGEU"
	DefaultListenPort      = 80
	DefaultOneshotDuration = 500 // ms
	DefaultGCMinAge        = 24 * 60 * 60
	DefaultGCMinCampaigns  = 1 << 16
	DefaultLogLevel        = string(logger.InfoLevel)
	DefaultJournalPath     = "/var/lib/mongeu/journal.db"
)

// Largest values that still fit a time.Duration
const (
	maxMillis  = uint64(math.MaxInt64 / int64(time.Millisecond))
	maxSeconds = uint64(math.MaxInt64 / int64(time.Second))
)

// DefaultListenAddrs are the unspecified IPv4 and IPv6 addresses
var DefaultListenAddrs = []string{"0.0.0.0", "::"}

type Config struct {
	ListenAddrs []string      `mapstructure:"listen_addrs"`
	ListenPort  uint16        `mapstructure:"listen_port"`
	BaseURI     string        `mapstructure:"base_uri"`
	LogLevel    string        `mapstructure:"log_level"`
	PIDFile     string        `mapstructure:"pid_file"`
	Oneshot     OneshotConfig `mapstructure:"oneshot"`
	GC          GCConfig      `mapstructure:"gc"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Journal     JournalConfig `mapstructure:"journal"`
	Dev         DevConfig     `mapstructure:"dev"`
}

type OneshotConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Duration is the default wait in milliseconds
	Duration uint64 `mapstructure:"duration"`
}

type GCConfig struct {
	// MinAge is in seconds
	MinAge       uint64 `mapstructure:"min_age"`
	MinCampaigns int    `mapstructure:"min_campaigns"`
}

type CacheConfig struct {
	// MaxAge is in seconds, 0 disables the Cache-Control header
	MaxAge uint64 `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type DevConfig struct {
	FakeDevices int `mapstructure:"fake_devices"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"listen":           "listen_addrs",
	"port":             "listen_port",
	"base-uri":         "base_uri",
	"log-level":        "log_level",
	"pid-file":         "pid_file",
	"oneshot":          "oneshot.enabled",
	"oneshot-duration": "oneshot.duration",
	"gc-min-age":       "gc.min_age",
	"gc-min-campaigns": "gc.min_campaigns",
	"max-age":          "cache.max_age",
	"metrics":          "metrics.enabled",
	"journal":          "journal.enabled",
	"journal-path":     "journal.path",
	"fake-devices":     "dev.fake_devices",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("mongeu", pflag.ContinueOnError)
	fs.String("config", "", "Path to the TOML configuration file")
	fs.StringSlice("listen", DefaultListenAddrs, "Addresses to listen on")
	fs.Uint16("port", DefaultListenPort, "Port to listen on")
	fs.String("base-uri", "", "Base URI used for redirects after campaign creation")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("pid-file", "", "Write a PID file to this path")
	fs.Bool("oneshot", false, "Enable oneshot measurements")
	fs.Uint64("oneshot-duration", DefaultOneshotDuration, "Default oneshot duration in milliseconds")
	fs.Uint64("gc-min-age", DefaultGCMinAge, "Minimum campaign age in seconds before it may be collected")
	fs.Int("gc-min-campaigns", DefaultGCMinCampaigns, "Number of campaigns at which collection starts")
	fs.Uint64("max-age", 0, "Cache-Control max-age in seconds for static responses")
	fs.Bool("metrics", true, "Expose Prometheus metrics at /metrics")
	fs.Bool("journal", false, "Record campaign lifecycle events in a SQLite journal")
	fs.String("journal-path", DefaultJournalPath, "Path to the journal database")
	fs.Int("fake-devices", 0, "Serve simulated devices instead of NVML (development only)")

	return fs
}

// Load reads the configuration file and overlays the given command line
// arguments. Flags win over the file, the file wins over flag defaults.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	path, explicit := resolveConfigPath(fs, o)
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
			logger.Debug().Str("path", path).Msg("Config file loaded")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveConfigPath(fs *pflag.FlagSet, o *options) (string, bool) {
	if p, _ := fs.GetString("config"); p != "" {
		return p, true
	}
	if o.configPath != "" {
		return o.configPath, true
	}
	if p, ok := os.LookupEnv(o.envPrefix + "_CONFIG"); ok {
		// an empty variable disables the config file entirely
		return p, p != ""
	}

	return DefaultConfigPath, false
}

// Validate checks value ranges that the type system does not catch
func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return errFactory.WithData(errors.ErrInvalidLogLevel, ValidationError{
			Field: "log_level", Value: c.LogLevel, Reason: "must be one of debug, info, warning, error",
		})
	}

	invalid := func(field string, value any, reason string) error {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: field, Value: value, Reason: reason,
		})
	}

	if len(c.ListenAddrs) == 0 {
		return invalid("listen_addrs", c.ListenAddrs, "at least one address is required")
	}
	for _, addr := range c.ListenAddrs {
		if net.ParseIP(addr) == nil {
			return invalid("listen_addrs", addr, "not an IP address")
		}
	}
	if c.Oneshot.Duration == 0 {
		return invalid("oneshot.duration", c.Oneshot.Duration, "must be non-zero")
	}
	if c.Oneshot.Duration > maxMillis {
		return invalid("oneshot.duration", c.Oneshot.Duration, "too large")
	}
	if c.GC.MinAge == 0 {
		return invalid("gc.min_age", c.GC.MinAge, "must be non-zero")
	}
	if c.GC.MinAge > maxSeconds {
		return invalid("gc.min_age", c.GC.MinAge, "too large")
	}
	if c.Cache.MaxAge > maxSeconds {
		return invalid("cache.max_age", c.Cache.MaxAge, "too large")
	}
	if c.GC.MinCampaigns <= 0 {
		return invalid("gc.min_campaigns", c.GC.MinCampaigns, "must be positive")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return invalid("journal.path", c.Journal.Path, "required when the journal is enabled")
	}
	if c.Dev.FakeDevices < 0 {
		return invalid("dev.fake_devices", c.Dev.FakeDevices, "must not be negative")
	}

	return nil
}

func (c *Config) OneshotDuration() time.Duration {
	return time.Duration(c.Oneshot.Duration) * time.Millisecond
}

func (c *Config) GCMinAge() time.Duration {
	return time.Duration(c.GC.MinAge) * time.Second
}

func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Cache.MaxAge) * time.Second
}

func (c *Config) Level() logger.LogLevel {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

// BaseURI without a trailing slash
func (c *Config) RedirectBase() string {
	return strings.TrimRight(c.BaseURI, "/")
}
