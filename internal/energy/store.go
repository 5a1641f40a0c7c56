package energy

import (
	"sync"
	"time"

	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/logger"
)

// Store maps campaign IDs to their baselines. A single reader/writer lock
// guards the map; measurements hold the read lock for their whole
// duration so a campaign cannot vanish while it is being measured.
type Store struct {
	mu        sync.RWMutex
	campaigns map[CampaignID]*Snapshot
	// nextID wraps after 2^32 creations and may then collide with a
	// campaign that is still alive, which Create reports as ErrIDConflict
	nextID CampaignID

	now      func() time.Time
	notify   chan struct{}
	observer Observer
	logger   logger.Logger
}

type StoreOption func(*Store)

// WithClock replaces time.Now as the source of capture and sweep times
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		s.observer = o
	}
}

func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		campaigns: make(map[CampaignID]*Snapshot),
		now:       time.Now,
		// a single slot coalesces bursts of creations into one wake
		notify:   make(chan struct{}, 1),
		observer: nopObserver{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.New("energy")
	}

	return s
}

// Create captures a baseline of all devices and stores it under the next
// ID. Device reads happen before the write lock is taken; a failed read
// leaves the store and the ID counter untouched.
func (s *Store) Create(src Source) (CampaignID, error) {
	snapshot, err := Baseline(src, s.now())
	if err != nil {
		return 0, err
	}

	id, err := s.insert(snapshot)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().
		Uint32("campaign", uint32(id)).
		Int("devices", snapshot.DeviceCount()).
		Msg("Campaign created")

	s.observer.CampaignCreated(id, snapshot)

	select {
	case s.notify <- struct{}{}:
	default:
	}

	return id, nil
}

func (s *Store) insert(snapshot *Snapshot) (CampaignID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	if _, exists := s.campaigns[id]; exists {
		return 0, errors.New().WithData(ErrIDConflict, struct {
			Campaign CampaignID
			Live     int
		}{
			Campaign: id,
			Live:     len(s.campaigns),
		})
	}

	s.campaigns[id] = snapshot
	s.nextID++

	return id, nil
}

// Delete removes a campaign and returns its baseline
func (s *Store) Delete(id CampaignID) (*Snapshot, bool) {
	s.mu.Lock()
	snapshot, ok := s.campaigns[id]
	if ok {
		delete(s.campaigns, id)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Debug().Uint32("campaign", uint32(id)).Msg("Campaign deleted")
		s.observer.CampaignDeleted(id, snapshot)
	}

	return snapshot, ok
}

// Get looks up a campaign without removing it. The returned snapshot is
// immutable and stays valid after the campaign is deleted.
func (s *Store) Get(id CampaignID) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.campaigns[id]

	return snapshot, ok
}

// Measure computes the delta of a campaign against current readings
func (s *Store) Measure(id CampaignID, src Source) (Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.campaigns[id]
	if !ok {
		return Measurement{}, errors.New().WithData(ErrCampaignNotFound, struct {
			Campaign CampaignID
		}{Campaign: id})
	}

	return snapshot.Delta(src, s.now())
}

// DeleteOlderThan removes every campaign captured strictly before cutoff
// and returns the removed IDs
func (s *Store) DeleteOlderThan(cutoff time.Time) []CampaignID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteOlderThan(cutoff)
}

func (s *Store) deleteOlderThan(cutoff time.Time) []CampaignID {
	var removed []CampaignID
	for id, snapshot := range s.campaigns {
		if snapshot.captured.Before(cutoff) {
			delete(s.campaigns, id)
			removed = append(removed, id)
		}
	}

	return removed
}

// Len returns the number of live campaigns
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.campaigns)
}

// collect removes campaigns older than minAge if at least minCampaigns are
// alive. Counting and removal happen under one write lock.
func (s *Store) collect(trigger Trigger, minCampaigns int, minAge time.Duration) Sweep {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sweep := Sweep{
		Trigger:   trigger,
		Live:      len(s.campaigns),
		Threshold: minCampaigns,
		Cutoff:    now.Add(-minAge),
	}

	if sweep.Live < minCampaigns {
		return sweep
	}

	sweep.Swept = true
	sweep.Removed = s.deleteOlderThan(sweep.Cutoff)

	return sweep
}

// Notifications fires at most once per batch of creations since the last
// receive
func (s *Store) Notifications() <-chan struct{} {
	return s.notify
}
