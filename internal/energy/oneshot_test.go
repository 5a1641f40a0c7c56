package energy_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneshot(t *testing.T) {
	src := newSequenceSource([]uint64{1000, 1020})

	start := time.Now()
	m, err := energy.Oneshot(context.Background(), src, 50*time.Millisecond)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.GreaterOrEqual(t, m.Elapsed, 50*time.Millisecond)
	assert.Equal(t, []energy.DeviceEnergy{{Device: 0, Energy: 20}}, m.Devices)
}

func TestOneshotCanceled(t *testing.T) {
	src := newSequenceSource([]uint64{1000, 1020})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := energy.Oneshot(ctx, src, time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Minute)
	assert.True(t, errors.HasCode(err, errors.ErrCanceled))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOneshotInvalidDuration(t *testing.T) {
	_, err := energy.Oneshot(context.Background(), newSequenceSource([]uint64{1}), 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, energy.ErrInvalidDuration))
}
