package energy_test

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineAndDelta(t *testing.T) {
	a := gpu.NewFakeDevice("A100", 1000)
	b := gpu.NewFakeDevice("H100", 5000)
	backend := gpu.NewFakeBackend(a, b)

	snapshot, err := energy.Baseline(backend, epoch)
	require.NoError(t, err)
	assert.Equal(t, epoch, snapshot.CapturedAt())
	assert.Equal(t, []energy.Reading{{Device: 0, Energy: 1000}, {Device: 1, Energy: 5000}}, snapshot.Readings())

	a.AddEnergy(500)
	b.AddEnergy(42)

	m, err := snapshot.Delta(backend, epoch.Add(100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, m.Elapsed)
	assert.Equal(t, []energy.DeviceEnergy{{Device: 0, Energy: 500}, {Device: 1, Energy: 42}}, m.Devices)
}

func TestBaselineFailsAtomically(t *testing.T) {
	a := gpu.NewFakeDevice("A100", 1000)
	b := gpu.NewFakeDevice("H100", 5000)
	b.Fail(fmt.Errorf("GPU has fallen off the bus"))

	snapshot, err := energy.Baseline(gpu.NewFakeBackend(a, b), epoch)
	require.Error(t, err)
	assert.Nil(t, snapshot)
	assert.True(t, errors.HasCode(err, energy.ErrBaselineFailed))
	assert.Contains(t, err.Error(), "Device:1")
}

func TestDeltaSaturates(t *testing.T) {
	device := gpu.NewFakeDevice("A100", 1000)
	backend := gpu.NewFakeBackend(device)

	snapshot, err := energy.Baseline(backend, epoch)
	require.NoError(t, err)

	// simulated counter reset
	device.SetEnergy(10)

	m, err := snapshot.Delta(backend, epoch)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.Devices[0].Energy)
}

func TestSaturatingSub(t *testing.T) {
	assert.Equal(t, uint64(0), energy.SaturatingSub(0, 1))
	assert.Equal(t, uint64(0), energy.SaturatingSub(1, math.MaxUint64))
	assert.Equal(t, uint64(0), energy.SaturatingSub(7, 7))
	assert.Equal(t, uint64(math.MaxUint64), energy.SaturatingSub(math.MaxUint64, 0))
	assert.Equal(t, uint64(500), energy.SaturatingSub(1500, 1000))
}

func TestDeltaFailsWhenDeviceDisappears(t *testing.T) {
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 1), gpu.NewFakeDevice("H100", 2))

	snapshot, err := energy.Baseline(backend, epoch)
	require.NoError(t, err)

	backend.Truncate(1)

	m, err := snapshot.Delta(backend, epoch)
	require.Error(t, err)
	assert.Empty(t, m.Devices, "no partial measurement")
	assert.True(t, errors.HasCode(err, energy.ErrMeasurementFailed))
	assert.True(t, gpu.IsNotFound(err))
}

func TestDeltaClampsNegativeElapsed(t *testing.T) {
	backend := gpu.NewFakeBackend(gpu.NewFakeDevice("A100", 1))

	snapshot, err := energy.Baseline(backend, epoch)
	require.NoError(t, err)

	m, err := snapshot.Delta(backend, epoch.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, m.Elapsed)
}

func TestMeasurementJSON(t *testing.T) {
	m := energy.Measurement{
		Elapsed: 1500 * time.Millisecond,
		Devices: []energy.DeviceEnergy{{Device: 0, Energy: 500}},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":1500,"devices":[{"id":0,"energy":500}]}`, string(data))

	data, err = json.Marshal(energy.Measurement{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":0,"devices":[]}`, string(data))
}
