package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/gpu"
	"codeberg.org/mutker/mongeu/internal/logger"
	"codeberg.org/mutker/mongeu/internal/metrics"
	"github.com/gin-gonic/gin"
)

// maxDurationMillis is the longest wait a time.Duration can hold
const maxDurationMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

type Config struct {
	// BaseURI prefixes the Location of a created campaign
	BaseURI string
	Oneshot bool
	// OneshotDuration is used when a request carries no duration
	OneshotDuration time.Duration
	// MaxAge of responses that never change while the process runs, 0
	// omits the Cache-Control header
	MaxAge  time.Duration
	Version string
}

type Server struct {
	cfg       Config
	telemetry gpu.Telemetry
	store     *energy.Store
	metrics   *metrics.Metrics
	logger    logger.Logger
	router    *gin.Engine
}

type Option func(*Server)

// WithMetrics instruments every request and serves /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func New(cfg Config, telemetry gpu.Telemetry, store *energy.Store, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		telemetry: telemetry,
		store:     store,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.New("server")
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), logger.GinMiddleware(s.logger))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/v1")
	{
		v1.GET("/ping", s.handlePing)
		v1.GET("/health", s.handleHealth)

		v1.GET("/device_count", s.cached, s.handleDeviceCount)
		v1.GET("/device/:index/name", s.cached, s.deviceProperty(gpu.Device.Name))
		v1.GET("/device/:index/uuid", s.cached, s.deviceProperty(gpu.Device.UUID))
		v1.GET("/device/:index/serial", s.cached, s.deviceProperty(gpu.Device.Serial))
		v1.GET("/device/:index/power_usage", s.handlePowerUsage)

		if s.cfg.Oneshot {
			v1.GET("/energy", s.handleOneshot)
		}
		v1.POST("/energy", s.handleCreateCampaign)
		v1.GET("/energy/:id", s.handleMeasureCampaign)
		v1.DELETE("/energy/:id", s.handleDeleteCampaign)
	}
}

// Handler returns the router for use by one or more http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

// cached sets Cache-Control on responses that stay valid for the
// lifetime of the process
func (s *Server) cached(c *gin.Context) {
	if s.cfg.MaxAge > 0 {
		c.Header("Cache-Control", "max-age="+strconv.FormatInt(int64(s.cfg.MaxAge/time.Second), 10))
	}
	c.Next()
}

func (s *Server) handlePing(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (s *Server) handleDeviceCount(c *gin.Context) {
	count, err := s.telemetry.DeviceCount()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

func (s *Server) device(c *gin.Context) (gpu.Device, bool) {
	index, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errors.GetErrorMessage(gpu.ErrDeviceNotFound)})
		return nil, false
	}

	device, err := s.telemetry.Device(uint32(index))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	return device, true
}

func (s *Server) deviceProperty(get func(gpu.Device) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		device, ok := s.device(c)
		if !ok {
			return
		}

		value, err := get(device)
		if err != nil {
			s.fail(c, err)
			return
		}

		c.JSON(http.StatusOK, value)
	}
}

func (s *Server) handlePowerUsage(c *gin.Context) {
	device, ok := s.device(c)
	if !ok {
		return
	}

	power, err := device.PowerUsage()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, power)
}

func (s *Server) handleOneshot(c *gin.Context) {
	duration := s.cfg.OneshotDuration
	if raw, ok := c.GetQuery("duration"); ok {
		ms, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || ms == 0 || ms > maxDurationMillis {
			s.fail(c, errors.New().WithData(ErrInvalidDuration, raw))
			return
		}
		duration = time.Duration(ms) * time.Millisecond
	}

	measurement, err := energy.Oneshot(c.Request.Context(), s.telemetry, duration)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, measurement)
}

func (s *Server) handleCreateCampaign(c *gin.Context) {
	id, err := s.store.Create(s.telemetry)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, s.cfg.BaseURI+"/v1/energy/"+strconv.FormatUint(uint64(id), 10))
}

func (s *Server) campaignID(c *gin.Context) (energy.CampaignID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		s.fail(c, errors.New().WithData(ErrInvalidCampaignID, raw))
		return 0, false
	}

	return energy.CampaignID(id), true
}

func (s *Server) handleMeasureCampaign(c *gin.Context) {
	id, ok := s.campaignID(c)
	if !ok {
		return
	}

	measurement, err := s.store.Measure(id, s.telemetry)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, measurement)
}

func (s *Server) handleDeleteCampaign(c *gin.Context) {
	id, ok := s.campaignID(c)
	if !ok {
		return
	}

	if _, ok := s.store.Delete(id); !ok {
		s.fail(c, errors.New().WithData(energy.ErrCampaignNotFound, struct {
			Campaign energy.CampaignID
		}{Campaign: id}))
		return
	}

	c.Status(http.StatusOK)
}

// statusOf maps an error to its HTTP status. Missing devices and
// unsupported queries are 404 on every route, including a device that
// vanished while a campaign was being measured.
func statusOf(err error) int {
	switch {
	case errors.HasCode(err, ErrInvalidDuration),
		errors.HasCode(err, ErrInvalidCampaignID),
		errors.HasCode(err, energy.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.HasCode(err, energy.ErrCampaignNotFound), gpu.IsNotFound(err):
		return http.StatusNotFound
	case errors.HasCode(err, errors.ErrCanceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logFailure(c, err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// failInternal answers 500 whatever the error code
func (s *Server) failInternal(c *gin.Context, err error) {
	s.logFailure(c, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) logFailure(c *gin.Context, err error) {
	event := s.logger.Warn()
	if errors.HasCode(err, energy.ErrIDConflict) {
		event = s.logger.Error()
	}

	code, _ := errors.CodeOf(err)
	event.
		Err(err).
		Str("error_code", string(code)).
		Str("route", c.FullPath()).
		Msg("Request failed")
}
