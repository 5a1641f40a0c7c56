package energy

import (
	"encoding/json"
	"time"
)

// CampaignID identifies a live campaign. IDs are handed out sequentially
// and are only unique among campaigns that are still alive.
type CampaignID uint32

// Source is the subset of the telemetry port needed to take readings
type Source interface {
	DeviceCount() (uint32, error)
	// TotalEnergy returns the cumulative energy of a device in millijoules
	TotalEnergy(index uint32) (uint64, error)
}

// Reading is a cumulative energy counter value of one device
type Reading struct {
	Device uint32
	Energy uint64
}

// DeviceEnergy is the energy a device consumed since the baseline
type DeviceEnergy struct {
	Device uint32 `json:"id"`
	Energy uint64 `json:"energy"`
}

// Measurement is the delta between a baseline and the current readings
type Measurement struct {
	Elapsed time.Duration
	Devices []DeviceEnergy
}

// MarshalJSON encodes the elapsed time in milliseconds
func (m Measurement) MarshalJSON() ([]byte, error) {
	devices := m.Devices
	if devices == nil {
		devices = []DeviceEnergy{}
	}

	return json.Marshal(struct {
		Time    int64          `json:"time"`
		Devices []DeviceEnergy `json:"devices"`
	}{
		Time:    m.Elapsed.Milliseconds(),
		Devices: devices,
	})
}

// Trigger names what woke the collector
type Trigger string

const (
	TriggerTick   Trigger = "tick"
	TriggerNotify Trigger = "notify"
)

// Sweep describes one collector cycle
type Sweep struct {
	Trigger   Trigger
	Live      int
	Threshold int
	Cutoff    time.Time
	// Swept is false when the store was below the threshold
	Swept   bool
	Removed []CampaignID
}

// Observer is told about campaign lifecycle events. Calls are made after
// the store lock has been released and must not block for long.
type Observer interface {
	CampaignCreated(id CampaignID, snapshot *Snapshot)
	CampaignDeleted(id CampaignID, snapshot *Snapshot)
	Swept(sweep Sweep)
}
