package gpu

func (d *nvmlDevice) PowerUsage() (uint32, error) {
	milliWatts, ret := d.handle.GetPowerUsage()
	if !IsNVMLSuccess(ret) {
		return 0, newNVMLError(ErrPowerUsageFailed, ret, d.op("power_usage"))
	}

	return milliWatts, nil
}

func (d *nvmlDevice) TotalEnergyConsumption() (uint64, error) {
	milliJoules, ret := d.handle.GetTotalEnergyConsumption()
	if !IsNVMLSuccess(ret) {
		return 0, newNVMLError(ErrEnergyFailed, ret, d.op("total_energy_consumption"))
	}

	return milliJoules, nil
}
