package gpu

import (
	"math"
	"sync"

	"codeberg.org/mutker/mongeu/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVML implements Telemetry on top of the NVIDIA Management Library
type NVML struct {
	mu          sync.RWMutex
	initialized bool
}

var _ Telemetry = (*NVML)(nil)

func NewNVML() *NVML {
	return &NVML{}
}

func (w *NVML) Initialize() error {
	errFactory := errors.New()
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.initialized {
		return nil
	}

	ret := nvml.Init()
	if !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrInitFailed, &nvmlError{ret: ret})
	}

	w.initialized = true

	return nil
}

func (w *NVML) Shutdown() error {
	errFactory := errors.New()
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return nil
	}

	ret := nvml.Shutdown()
	if !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrShutdownFailed, &nvmlError{ret: ret})
	}

	w.initialized = false

	return nil
}

func (w *NVML) ready() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.initialized {
		return errors.New().New(ErrNotInitialized)
	}

	return nil
}

func (w *NVML) DeviceCount() (uint32, error) {
	if err := w.ready(); err != nil {
		return 0, err
	}

	count, ret := nvml.DeviceGetCount()
	if !IsNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrDeviceCountFailed, &nvmlError{ret: ret})
	}

	//nolint:gosec // G115: NVML never reports a negative count
	return uint32(count), nil
}

func (w *NVML) Device(index uint32) (Device, error) {
	if err := w.ready(); err != nil {
		return nil, err
	}

	if index > math.MaxInt32 {
		return nil, errors.New().WithData(ErrDeviceNotFound, deviceOp{Device: index, Operation: "lookup"})
	}

	handle, ret := nvml.DeviceGetHandleByIndex(int(index))
	if !IsNVMLSuccess(ret) {
		return nil, newNVMLError(ErrDeviceNotFound, ret, deviceOp{Device: index, Operation: "lookup"})
	}

	return &nvmlDevice{index: index, handle: handle}, nil
}

func (w *NVML) TotalEnergy(index uint32) (uint64, error) {
	device, err := w.Device(index)
	if err != nil {
		return 0, err
	}

	return device.TotalEnergyConsumption()
}

func (w *NVML) DriverVersion() (string, error) {
	if err := w.ready(); err != nil {
		return "", err
	}

	version, ret := nvml.SystemGetDriverVersion()
	if !IsNVMLSuccess(ret) {
		return "", errors.New().Wrap(ErrSystemInfoFailed, &nvmlError{ret: ret})
	}

	return version, nil
}

func (w *NVML) NVMLVersion() (string, error) {
	if err := w.ready(); err != nil {
		return "", err
	}

	version, ret := nvml.SystemGetNVMLVersion()
	if !IsNVMLSuccess(ret) {
		return "", errors.New().Wrap(ErrSystemInfoFailed, &nvmlError{ret: ret})
	}

	return version, nil
}

type nvmlDevice struct {
	index  uint32
	handle nvml.Device
}

func (d *nvmlDevice) Index() uint32 {
	return d.index
}

func (d *nvmlDevice) op(name string) deviceOp {
	return deviceOp{Device: d.index, Operation: name}
}

func (d *nvmlDevice) Name() (string, error) {
	name, ret := d.handle.GetName()
	if !IsNVMLSuccess(ret) {
		return "", newNVMLError(ErrDeviceInfoFailed, ret, d.op("name"))
	}

	return name, nil
}

func (d *nvmlDevice) UUID() (string, error) {
	uuid, ret := d.handle.GetUUID()
	if !IsNVMLSuccess(ret) {
		return "", newNVMLError(ErrDeviceInfoFailed, ret, d.op("uuid"))
	}

	return uuid, nil
}

func (d *nvmlDevice) Serial() (string, error) {
	serial, ret := d.handle.GetSerial()
	if !IsNVMLSuccess(ret) {
		return "", newNVMLError(ErrDeviceInfoFailed, ret, d.op("serial"))
	}

	return serial, nil
}
