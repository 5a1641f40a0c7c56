package energy

import "codeberg.org/mutker/mongeu/internal/errors"

const (
	ErrCampaignNotFound  = errors.ErrorCode("energy_campaign_not_found")
	ErrIDConflict        = errors.ErrorCode("energy_campaign_id_conflict")
	ErrBaselineFailed    = errors.ErrorCode("energy_baseline_failed")
	ErrMeasurementFailed = errors.ErrorCode("energy_measurement_failed")
	ErrInvalidDuration   = errors.ErrorCode("energy_invalid_duration")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrCampaignNotFound:  "Campaign not found",
		ErrIDConflict:        "Campaign ID already in use",
		ErrBaselineFailed:    "Failed to capture baseline",
		ErrMeasurementFailed: "Failed to measure energy",
		ErrInvalidDuration:   "Invalid duration",
	})
}

// readFailure identifies the device read that aborted a snapshot or measurement
type readFailure struct {
	Device    uint32
	Operation string
}
