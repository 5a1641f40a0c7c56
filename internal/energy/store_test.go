package energy_test

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIDsIncrease(t *testing.T) {
	store := energy.NewStore()
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 0))

	for want := energy.CampaignID(0); want < 10; want++ {
		id, err := store.Create(backend)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 10, store.Len())
}

func TestCreateIDWraps(t *testing.T) {
	store := energy.NewStore()
	store.SetNextID(math.MaxUint32)
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 0))

	id, err := store.Create(backend)
	require.NoError(t, err)
	assert.Equal(t, energy.CampaignID(math.MaxUint32), id)

	id, err = store.Create(backend)
	require.NoError(t, err)
	assert.Equal(t, energy.CampaignID(0), id, "counter wraps to zero")
}

func TestCreateIDConflict(t *testing.T) {
	store := energy.NewStore()
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 0))

	id, err := store.Create(backend)
	require.NoError(t, err)
	require.Equal(t, energy.CampaignID(0), id)

	// pretend 2^32 creations happened while campaign 0 stayed alive
	store.SetNextID(0)

	_, err = store.Create(backend)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, energy.ErrIDConflict))
	assert.Equal(t, 1, store.Len())

	_, ok := store.Delete(0)
	require.True(t, ok)

	id, err = store.Create(backend)
	require.NoError(t, err)
	assert.Equal(t, energy.CampaignID(0), id, "slot is reusable once freed")
}

func TestCreateIsAtomic(t *testing.T) {
	store := energy.NewStore()
	good := gpu.NewFakeDevice("A100", 0)
	bad := gpu.NewFakeDevice("H100", 0)
	backend := gpu.NewFakeBackend(good, bad)

	id, err := store.Create(backend)
	require.NoError(t, err)
	assert.Equal(t, energy.CampaignID(0), id)

	bad.Fail(fmt.Errorf("unknown error"))
	_, err = store.Create(backend)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, energy.ErrBaselineFailed))
	assert.Equal(t, 1, store.Len(), "nothing inserted")

	bad.Fail(nil)
	id, err = store.Create(backend)
	require.NoError(t, err)
	assert.Equal(t, energy.CampaignID(1), id, "failed creation consumed no ID")
}

func TestGetAndDelete(t *testing.T) {
	clock := newFakeClock()
	store := energy.NewStore(energy.WithClock(clock.Now))
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 7))

	id, err := store.Create(backend)
	require.NoError(t, err)

	snapshot, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, epoch, snapshot.CapturedAt())
	assert.Equal(t, 1, store.Len(), "get does not remove")

	deleted, ok := store.Delete(id)
	require.True(t, ok)
	assert.Same(t, snapshot, deleted)

	_, ok = store.Delete(id)
	assert.False(t, ok)
	_, ok = store.Get(id)
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestMeasure(t *testing.T) {
	clock := newFakeClock()
	store := energy.NewStore(energy.WithClock(clock.Now))
	device := gpu.NewFakeDevice("A100", 1000)
	backend := gpu.NewFakeBackend(device)

	id, err := store.Create(backend)
	require.NoError(t, err)

	clock.Advance(100 * time.Millisecond)
	device.SetEnergy(1500)

	m, err := store.Measure(id, backend)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, m.Elapsed)
	assert.Equal(t, []energy.DeviceEnergy{{Device: 0, Energy: 500}}, m.Devices)

	_, err = store.Measure(id+1, backend)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, energy.ErrCampaignNotFound))
}

func TestDeleteOlderThan(t *testing.T) {
	clock := newFakeClock()
	store := energy.NewStore(energy.WithClock(clock.Now))
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 0))

	old, err := store.Create(backend)
	require.NoError(t, err)
	clock.Advance(time.Second)
	boundary, err := store.Create(backend)
	require.NoError(t, err)
	clock.Advance(time.Second)
	fresh, err := store.Create(backend)
	require.NoError(t, err)

	removed := store.DeleteOlderThan(epoch.Add(time.Second))
	assert.Equal(t, []energy.CampaignID{old}, removed)

	_, ok := store.Get(boundary)
	assert.True(t, ok, "captured exactly at the cutoff is kept")
	_, ok = store.Get(fresh)
	assert.True(t, ok)
}

func TestObserverEvents(t *testing.T) {
	observer := &recordingObserver{}
	store := energy.NewStore(energy.WithObserver(observer))
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 0))

	a, err := store.Create(backend)
	require.NoError(t, err)
	b, err := store.Create(backend)
	require.NoError(t, err)
	store.Delete(a)
	store.Delete(a)

	assert.Equal(t, []energy.CampaignID{a, b}, observer.created)
	assert.Equal(t, []energy.CampaignID{a}, observer.deleted, "deleting twice reports once")
}

func TestNotificationsCoalesce(t *testing.T) {
	store := energy.NewStore()
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 0))

	for i := 0; i < 5; i++ {
		_, err := store.Create(backend)
		require.NoError(t, err)
	}

	assert.Len(t, store.Notifications(), 1)
	<-store.Notifications()
	assert.Empty(t, store.Notifications())
}

// blockingSource parks every TotalEnergy call until released
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	block   bool
}

func (s *blockingSource) DeviceCount() (uint32, error) {
	return 1, nil
}

func (s *blockingSource) TotalEnergy(uint32) (uint64, error) {
	if s.block {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}

	return 100, nil
}

func TestDeleteWaitsForMeasurement(t *testing.T) {
	store := energy.NewStore()
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}

	id, err := store.Create(src)
	require.NoError(t, err)
	src.block = true

	measured := make(chan error, 1)
	go func() {
		_, err := store.Measure(id, src)
		measured <- err
	}()
	<-src.entered

	deleted := make(chan bool, 1)
	go func() {
		_, ok := store.Delete(id)
		deleted <- ok
	}()

	select {
	case <-deleted:
		t.Fatal("delete completed while the measurement held the campaign")
	case <-time.After(50 * time.Millisecond):
	}

	close(src.release)

	require.NoError(t, <-measured)
	assert.True(t, <-deleted)
	assert.Zero(t, store.Len())
}

func TestConcurrentAccess(t *testing.T) {
	store := energy.NewStore()
	backend := gpu.NewSimulatedBackend(2, 50_000)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id, err := store.Create(backend)
				if !assert.NoError(t, err) {
					return
				}
				_, err = store.Measure(id, backend)
				assert.NoError(t, err)
				_, ok := store.Delete(id)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, store.Len())
}
