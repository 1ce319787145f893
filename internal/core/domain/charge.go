package domain

// ChargeEvent records the battery level when a charge action began in a slot.
// End stays nil until the next charge action fills it in.
type ChargeEvent struct {
	Start       float64  `json:"start"`
	StartMinute int      `json:"startMinute"` // minute of the hour the charge started
	End         *float64 `json:"end,omitempty"`
}
