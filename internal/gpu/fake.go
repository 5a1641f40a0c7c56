package gpu

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/mongeu/internal/errors"
)

// FakeBackend implements Telemetry without real GPUs. It backs the tests
// and the fake_devices development mode.
type FakeBackend struct {
	mu      sync.RWMutex
	devices []*FakeDevice

	Driver      string
	Library     string
	initialized bool
}

// FakeDevice is a simulated GPU. Exported fields configure static
// properties; the energy counter is changed through its methods.
type FakeDevice struct {
	DeviceName   string
	DeviceUUID   string
	DeviceSerial string
	// Power is the reported draw in milliwatts
	Power uint32

	mu     sync.RWMutex
	index  uint32
	energy uint64
	err    error

	// simulated devices integrate Power over wall clock time
	simulate bool
	since    time.Time
}

var (
	_ Telemetry = (*FakeBackend)(nil)
	_ Device    = (*FakeDevice)(nil)
)

// NewFakeBackend creates a FakeBackend with the given devices. Devices are
// indexed in the order they are passed.
func NewFakeBackend(devices ...*FakeDevice) *FakeBackend {
	for i, d := range devices {
		//nolint:gosec // G115: test fixtures never hold 2^32 devices
		d.index = uint32(i)
	}

	return &FakeBackend{
		devices: devices,
		Driver:  "fake",
		Library: "fake",
	}
}

// NewSimulatedBackend creates count devices whose energy counters rise by
// power milliwatts of continuous draw.
func NewSimulatedBackend(count int, power uint32) *FakeBackend {
	now := time.Now()
	devices := make([]*FakeDevice, count)
	for i := range devices {
		devices[i] = &FakeDevice{
			DeviceName:   "Simulated GPU",
			DeviceUUID:   fmt.Sprintf("GPU-00000000-0000-0000-0000-%012d", i),
			DeviceSerial: fmt.Sprintf("SIM%010d", i),
			Power:        power,
			simulate:     true,
			since:        now,
		}
	}

	return NewFakeBackend(devices...)
}

// NewFakeDevice returns a device starting at the given energy reading
func NewFakeDevice(name string, energy uint64) *FakeDevice {
	return &FakeDevice{
		DeviceName:   name,
		DeviceUUID:   "GPU-" + name,
		DeviceSerial: "SN-" + name,
		energy:       energy,
	}
}

func (b *FakeBackend) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return nil
}

func (b *FakeBackend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = false
	return nil
}

func (b *FakeBackend) DeviceCount() (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	//nolint:gosec // G115: see NewFakeBackend
	return uint32(len(b.devices)), nil
}

func (b *FakeBackend) Device(index uint32) (Device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if int64(index) >= int64(len(b.devices)) {
		return nil, errors.New().WithData(ErrDeviceNotFound, deviceOp{Device: index, Operation: "lookup"})
	}

	return b.devices[index], nil
}

func (b *FakeBackend) TotalEnergy(index uint32) (uint64, error) {
	device, err := b.Device(index)
	if err != nil {
		return 0, err
	}

	return device.TotalEnergyConsumption()
}

func (b *FakeBackend) DriverVersion() (string, error) {
	return b.Driver, nil
}

func (b *FakeBackend) NVMLVersion() (string, error) {
	return b.Library, nil
}

// Truncate removes every device at or above count, simulating devices
// falling off the bus
func (b *FakeBackend) Truncate(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count < len(b.devices) {
		b.devices = b.devices[:count]
	}
}

func (d *FakeDevice) Index() uint32 {
	return d.index
}

func (d *FakeDevice) Name() (string, error) {
	return d.DeviceName, nil
}

func (d *FakeDevice) UUID() (string, error) {
	return d.DeviceUUID, nil
}

func (d *FakeDevice) Serial() (string, error) {
	if d.DeviceSerial == "" {
		return "", errors.New().WithData(ErrNotSupported, deviceOp{Device: d.index, Operation: "serial"})
	}

	return d.DeviceSerial, nil
}

func (d *FakeDevice) PowerUsage() (uint32, error) {
	return d.Power, nil
}

func (d *FakeDevice) TotalEnergyConsumption() (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.err != nil {
		return 0, errors.New().Wrap(ErrEnergyFailed, d.err).
			WithData(deviceOp{Device: d.index, Operation: "total_energy_consumption"})
	}

	if d.simulate {
		// mW * ms / 1000 = mJ
		elapsed := uint64(time.Since(d.since).Milliseconds())
		return d.energy + uint64(d.Power)*elapsed/1000, nil
	}

	return d.energy, nil
}

// SetEnergy sets the cumulative counter in millijoules
func (d *FakeDevice) SetEnergy(milliJoules uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.energy = milliJoules
}

// AddEnergy advances the cumulative counter
func (d *FakeDevice) AddEnergy(milliJoules uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.energy += milliJoules
}

// Fail makes subsequent energy reads return err until Fail(nil) is called
func (d *FakeDevice) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}
