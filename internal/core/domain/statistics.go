package domain

// HistorySlot is the per-slot consumption record produced for one day.
type HistorySlot struct {
	SlotTimeIndex int64    `json:"slotTimeIndex"`
	TimeText      string   `json:"time"`
	PVOutput      float64  `json:"pvOutput"`
	HouseLoad     float64  `json:"houseLoad"`
	GridImport    float64  `json:"gridImport"`
	GridExport    float64  `json:"gridExport"`
	BatteryLevel  float64  `json:"batteryLevel"`
	Price         *float64 `json:"price"` // nil when not available
}

// Average is the mean consumption and production between two times of day.
type Average struct {
	Consumption float64 `json:"consumption"`
	Production  float64 `json:"production"`
	Days        int     `json:"days"`
}

// ProfileSlot is one slot of the typical daily consumption curve.
type ProfileSlot struct {
	TimeText    string  `json:"time"`
	Consumption float64 `json:"consumption"`
}
