package energy

import (
	"time"

	"codeberg.org/mutker/mongeu/internal/errors"
)

// Snapshot is an immutable baseline of every device's cumulative energy
type Snapshot struct {
	captured time.Time
	readings []Reading
}

// Baseline reads every device once. Either all reads succeed or no
// snapshot is returned.
func Baseline(src Source, now time.Time) (*Snapshot, error) {
	errFactory := errors.New()

	count, err := src.DeviceCount()
	if err != nil {
		return nil, errFactory.Wrap(ErrBaselineFailed, err).
			WithData(readFailure{Operation: "device_count"})
	}

	readings := make([]Reading, 0, count)
	for i := uint32(0); i < count; i++ {
		energy, err := src.TotalEnergy(i)
		if err != nil {
			return nil, errFactory.Wrap(ErrBaselineFailed, err).
				WithData(readFailure{Device: i, Operation: "total_energy"})
		}
		readings = append(readings, Reading{Device: i, Energy: energy})
	}

	return &Snapshot{captured: now, readings: readings}, nil
}

func (s *Snapshot) CapturedAt() time.Time {
	return s.captured
}

// Readings returns a copy of the baseline readings
func (s *Snapshot) Readings() []Reading {
	readings := make([]Reading, len(s.readings))
	copy(readings, s.readings)

	return readings
}

// DeviceCount is the number of devices present when the baseline was taken
func (s *Snapshot) DeviceCount() int {
	return len(s.readings)
}

// Delta re-reads every device of the baseline and returns the energy used
// since. A device that can no longer be read fails the whole measurement.
func (s *Snapshot) Delta(src Source, now time.Time) (Measurement, error) {
	errFactory := errors.New()

	devices := make([]DeviceEnergy, 0, len(s.readings))
	for _, baseline := range s.readings {
		current, err := src.TotalEnergy(baseline.Device)
		if err != nil {
			return Measurement{}, errFactory.Wrap(ErrMeasurementFailed, err).
				WithData(readFailure{Device: baseline.Device, Operation: "total_energy"})
		}
		devices = append(devices, DeviceEnergy{
			Device: baseline.Device,
			Energy: saturatingSub(current, baseline.Energy),
		})
	}

	elapsed := now.Sub(s.captured)
	if elapsed < 0 {
		elapsed = 0
	}

	return Measurement{Elapsed: elapsed, Devices: devices}, nil
}

// saturatingSub clamps at zero so a counter reset never wraps around
func saturatingSub(current, baseline uint64) uint64 {
	if current < baseline {
		return 0
	}

	return current - baseline
}
