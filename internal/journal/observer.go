package journal

import (
	"context"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/logger"
)

const recordTimeout = time.Second

type observer struct {
	journal Journal
	logger  logger.Logger
	now     func() time.Time
}

// Observer records store lifecycle events in j. Recording failures are
// logged and never reach the store.
func Observer(j Journal, log logger.Logger) energy.Observer {
	return &observer{journal: j, logger: log, now: time.Now}
}

func (o *observer) record(id energy.CampaignID, kind Kind, devices int) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	event := &Event{
		Timestamp: o.now(),
		Campaign:  uint32(id),
		Kind:      kind,
		Devices:   devices,
	}

	if err := o.journal.Record(ctx, event); err != nil {
		o.logger.Warn().
			Err(err).
			Uint32("campaign", uint32(id)).
			Str("kind", string(kind)).
			Msg("Failed to record journal event")
	}
}

func (o *observer) CampaignCreated(id energy.CampaignID, snapshot *energy.Snapshot) {
	o.record(id, KindCreated, snapshot.DeviceCount())
}

func (o *observer) CampaignDeleted(id energy.CampaignID, snapshot *energy.Snapshot) {
	o.record(id, KindDeleted, snapshot.DeviceCount())
}

func (o *observer) Swept(sweep energy.Sweep) {
	for _, id := range sweep.Removed {
		o.record(id, KindCollected, 0)
	}
}
