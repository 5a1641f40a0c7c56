package energy

import (
	"context"
	"time"

	"codeberg.org/mutker/mongeu/internal/logger"
)

const minGCInterval = 60 * time.Second

// GCConfig controls campaign collection
type GCConfig struct {
	// MinAge is the age a campaign must exceed before it may be collected
	MinAge time.Duration
	// MinCampaigns is the live count at which collection starts
	MinCampaigns int
}

// Interval is a quarter of MinAge but never below one minute
func (c GCConfig) Interval() time.Duration {
	return max(c.MinAge/4, minGCInterval)
}

// Collector removes old campaigns once the store has grown past a
// threshold. It wakes on a timer and whenever a campaign is created.
type Collector struct {
	store  *Store
	cfg    GCConfig
	logger logger.Logger
}

func NewCollector(store *Store, cfg GCConfig, log logger.Logger) *Collector {
	if log == nil {
		log = logger.New("gc")
	}

	return &Collector{
		store:  store,
		cfg:    cfg,
		logger: log,
	}
}

// Run blocks until ctx is done. Ticks missed while a sweep is running are
// dropped by the ticker rather than queued.
func (c *Collector) Run(ctx context.Context) error {
	interval := c.cfg.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info().
		Dur("interval", interval).
		Dur("min_age", c.cfg.MinAge).
		Int("min_campaigns", c.cfg.MinCampaigns).
		Msg("Campaign collector started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("Campaign collector stopped")
			return nil
		case <-ticker.C:
			c.Sweep(TriggerTick)
		case <-c.store.Notifications():
			c.Sweep(TriggerNotify)
		}
	}
}

// Sweep runs a single collection cycle
func (c *Collector) Sweep(trigger Trigger) Sweep {
	sweep := c.store.collect(trigger, c.cfg.MinCampaigns, c.cfg.MinAge)

	c.logger.Debug().
		Str("trigger", string(trigger)).
		Int("campaigns", sweep.Live).
		Int("threshold", sweep.Threshold).
		Bool("swept", sweep.Swept).
		Msg("Collector woke up")

	if len(sweep.Removed) > 0 {
		c.logger.Info().
			Str("trigger", string(trigger)).
			Int("removed", len(sweep.Removed)).
			Int("remaining", sweep.Live-len(sweep.Removed)).
			Time("cutoff", sweep.Cutoff).
			Msg("Collected old campaigns")
	}

	c.store.observer.Swept(sweep)

	return sweep
}
