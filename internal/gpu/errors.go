package gpu

import (
	"fmt"

	"codeberg.org/mutker/mongeu/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	// Initialization and Lifecycle Errors
	ErrNotInitialized = errors.ErrorCode("gpu_not_initialized")
	ErrInitFailed     = errors.ErrorCode("gpu_init_failed")
	ErrShutdownFailed = errors.ErrorCode("gpu_shutdown_failed")

	// Lookup Errors
	ErrDeviceNotFound = errors.ErrorCode("gpu_device_not_found")
	ErrNotSupported   = errors.ErrorCode("gpu_not_supported")

	// Read Errors
	ErrDeviceCountFailed = errors.ErrorCode("gpu_device_count_failed")
	ErrDeviceInfoFailed  = errors.ErrorCode("gpu_device_info_failed")
	ErrPowerUsageFailed  = errors.ErrorCode("gpu_power_usage_failed")
	ErrEnergyFailed      = errors.ErrorCode("gpu_energy_read_failed")
	ErrSystemInfoFailed  = errors.ErrorCode("gpu_system_info_failed")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrNotInitialized:    "GPU library not initialized",
		ErrInitFailed:        "Failed to initialize GPU library",
		ErrShutdownFailed:    "Failed to shut down GPU library",
		ErrDeviceNotFound:    "Device not found",
		ErrNotSupported:      "Operation not supported by device",
		ErrDeviceCountFailed: "Failed to get device count",
		ErrDeviceInfoFailed:  "Failed to get device information",
		ErrPowerUsageFailed:  "Failed to get power usage",
		ErrEnergyFailed:      "Failed to get total energy consumption",
		ErrSystemInfoFailed:  "Failed to get system information",
	})
}

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// IsNVMLSuccess checks if a Return value indicates success
func IsNVMLSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}

// deviceOp identifies the call that failed
type deviceOp struct {
	Device    uint32
	Operation string
}

func (o deviceOp) String() string {
	return fmt.Sprintf("device %d: %s", o.Device, o.Operation)
}

// newNVMLError converts a failed NVML call into a coded error. Invalid
// arguments and unsupported queries are reported as lookup failures so
// callers can tell them apart from driver errors.
func newNVMLError(code errors.ErrorCode, ret nvml.Return, op deviceOp) error {
	errFactory := errors.New()

	switch ret {
	case nvml.SUCCESS:
		return nil
	case nvml.ERROR_INVALID_ARGUMENT, nvml.ERROR_NOT_FOUND:
		code = ErrDeviceNotFound
	case nvml.ERROR_NOT_SUPPORTED:
		code = ErrNotSupported
	}

	return errFactory.Wrap(code, &nvmlError{ret: ret}).WithData(op)
}

// IsNotFound reports whether err means the device or the queried
// property does not exist
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrDeviceNotFound) || errors.HasCode(err, ErrNotSupported)
}
