package energy_test

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceSource returns successive values per device, repeating the last
type sequenceSource struct {
	mu     sync.Mutex
	values [][]uint64
	reads  []int
}

func newSequenceSource(values ...[]uint64) *sequenceSource {
	return &sequenceSource{values: values, reads: make([]int, len(values))}
}

func (s *sequenceSource) DeviceCount() (uint32, error) {
	return uint32(len(s.values)), nil
}

func (s *sequenceSource) TotalEnergy(index uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(index) >= len(s.values) {
		return 0, fmt.Errorf("no device %d", index)
	}

	seq := s.values[index]
	i := min(s.reads[index], len(seq)-1)
	s.reads[index]++

	return seq[i], nil
}

// recordingObserver keeps every event it is given
type recordingObserver struct {
	mu      sync.Mutex
	created []energy.CampaignID
	deleted []energy.CampaignID
	sweeps  []energy.Sweep
}

func (o *recordingObserver) CampaignCreated(id energy.CampaignID, _ *energy.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, id)
}

func (o *recordingObserver) CampaignDeleted(id energy.CampaignID, _ *energy.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, id)
}

func (o *recordingObserver) Swept(sweep energy.Sweep) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sweeps = append(o.sweeps, sweep)
}
