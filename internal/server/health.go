package server

import (
	"net/http"

	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/gpu"
	"github.com/gin-gonic/gin"
)

type Health struct {
	DeviceCount    uint32   `json:"device_count"`
	DeviceNames    []string `json:"device_names"`
	Version        string   `json:"version"`
	DriverVersion  string   `json:"driver_version"`
	NVMLVersion    string   `json:"nvml_version"`
	Campaigns      int      `json:"campaigns"`
	OneshotEnabled bool     `json:"oneshot_enabled"`
}

// Health queries every device. Any failure, a missing device included,
// makes the service unhealthy.
func (s *Server) Health() (*Health, error) {
	errFactory := errors.New()

	count, err := s.telemetry.DeviceCount()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		device, err := s.telemetry.Device(i)
		if err != nil {
			return nil, errFactory.Wrap(gpu.ErrDeviceInfoFailed, err)
		}
		name, err := device.Name()
		if err != nil {
			return nil, errFactory.Wrap(gpu.ErrDeviceInfoFailed, err)
		}
		names = append(names, name)
	}

	driver, err := s.telemetry.DriverVersion()
	if err != nil {
		return nil, err
	}

	library, err := s.telemetry.NVMLVersion()
	if err != nil {
		return nil, err
	}

	return &Health{
		DeviceCount:    count,
		DeviceNames:    names,
		Version:        s.cfg.Version,
		DriverVersion:  driver,
		NVMLVersion:    library,
		Campaigns:      s.store.Len(),
		OneshotEnabled: s.cfg.Oneshot,
	}, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	health, err := s.Health()
	if err != nil {
		s.failInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, health)
}
