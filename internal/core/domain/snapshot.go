package domain

// SlotMillis is the length of one half-hour slot in milliseconds.
const SlotMillis int64 = 1_800_000

// SlotsPerDay is the number of half-hour slots between the first (00:00) and
// the last (23:30) boundary of a calendar day.
const SlotsPerDay = 47

// SnapshotKey addresses one snapshot in the time-series store. DateIndex is the
// local midnight of the calendar day and TimeIndex the sample boundary, both in
// milliseconds since the unix epoch.
type SnapshotKey struct {
	DateIndex int64
	TimeIndex int64
}

// Snapshot is one telemetry sample for a half-hour boundary. Power fields are
// kW, cumulative (*Total) fields are kWh since local midnight.
type Snapshot struct {
	PVOutputNow        float64 `json:"pvOutputNow"`
	PVOutputTotal      float64 `json:"pvOutputTotal"`
	HouseLoadNow       float64 `json:"houseLoadNow"`
	HouseLoadTotal     float64 `json:"houseLoadTotal"`
	GridImportNow      float64 `json:"gridImportNow"`
	GridImportTotal    float64 `json:"gridImportTotal"`
	GridExportTotal    float64 `json:"gridExportTotal"`
	BatteryLevel       float64 `json:"batteryLevel"`
	BatteryChargePower float64 `json:"batteryChargePower"`
}

// StoredSnapshot is a snapshot together with its key.
type StoredSnapshot struct {
	SnapshotKey
	Snapshot
}

// Suppressed reports whether the snapshot carries no meaningful load yet and
// must not be persisted.
func (s Snapshot) Suppressed() bool {
	return s.HouseLoadTotal == 0
}
