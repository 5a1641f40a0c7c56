package gpu

// Telemetry is the device telemetry port consumed by the service.
// All calls are synchronous and fallible.
type Telemetry interface {
	// Initialize prepares the backend for use
	Initialize() error
	Shutdown() error

	DeviceCount() (uint32, error)
	Device(index uint32) (Device, error)

	// TotalEnergy returns the cumulative energy of a device in millijoules
	TotalEnergy(index uint32) (uint64, error)

	DriverVersion() (string, error)
	NVMLVersion() (string, error)
}

// Device is a handle to a single GPU
type Device interface {
	Index() uint32
	Name() (string, error)
	UUID() (string, error)
	Serial() (string, error)
	// PowerUsage returns the current draw in milliwatts
	PowerUsage() (uint32, error)
	// TotalEnergyConsumption returns millijoules consumed since the driver was loaded
	TotalEnergyConsumption() (uint64, error)
}
