package server

import "codeberg.org/mutker/mongeu/internal/errors"

const (
	ErrInvalidDuration   = errors.ErrorCode("server_invalid_duration")
	ErrInvalidCampaignID = errors.ErrorCode("server_invalid_campaign_id")
	ErrListenFailed      = errors.ErrorCode("server_listen_failed")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrInvalidDuration:   "Duration must be a non-zero number of milliseconds",
		ErrInvalidCampaignID: "Campaign ID must be an unsigned 32 bit integer",
		ErrListenFailed:      "Failed to listen",
	})
}
