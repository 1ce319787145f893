package soliscloud

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
)

// dayRecord is one five minute sample as returned by inverterDay. Power
// values are W except batteryPower (kW); energies are kWh.
type dayRecord struct {
	DataTimestamp            flexString `json:"dataTimestamp"`
	Pac                      float64    `json:"pac"`
	EToday                   float64    `json:"eToday"`
	FamilyLoadPower          float64    `json:"familyLoadPower"`
	HomeLoadTodayEnergy      float64    `json:"homeLoadTodayEnergy"`
	PSum                     float64    `json:"psum"`
	GridPurchasedTodayEnergy float64    `json:"gridPurchasedTodayEnergy"`
	GridSellTodayEnergy      float64    `json:"gridSellTodayEnergy"`
	BatteryCapacitySoc       float64    `json:"batteryCapacitySoc"`
	BatteryPower             float64    `json:"batteryPower"`
}

// toSnapshot converts the vendor units into the stored kW/kWh snapshot.
func (r dayRecord) toSnapshot() domain.Snapshot {
	return domain.Snapshot{
		PVOutputNow:        r.Pac / 1000,
		PVOutputTotal:      r.EToday,
		HouseLoadNow:       r.FamilyLoadPower / 1000,
		HouseLoadTotal:     r.HomeLoadTodayEnergy,
		GridImportNow:      max(0, -r.PSum) / 1000,
		GridImportTotal:    r.GridPurchasedTodayEnergy,
		GridExportTotal:    r.GridSellTodayEnergy,
		BatteryLevel:       r.BatteryCapacitySoc,
		BatteryChargePower: r.BatteryPower,
	}
}

type timedRecord struct {
	ts     int64
	record dayRecord
}

// Telemetry pulls daily telemetry for the configured inverter.
type Telemetry struct {
	Client   *Client
	Currency string
}

// InverterDay returns the samples of the given day, each keyed by the
// half-hour boundary it falls into, in time order. Several samples map to the
// same boundary; the store keeps the earliest.
func (t *Telemetry) InverterDay(ctx context.Context, day domain.Moment) ([]domain.StoredSnapshot, error) {
	_, offset := time.UnixMilli(day.DateIndex).In(t.Client.location()).Zone()
	data, err := t.Client.post(ctx, pathInverterDay, map[string]any{
		"sn":       t.Client.InverterSn(),
		"money":    t.Currency,
		"time":     day.DayText,
		"timeZone": float64(offset) / 3600,
	})
	if err != nil {
		return nil, err
	}
	var records []dayRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: invalid inverter day: %v", domain.ErrVendor, err)
	}

	dayEnd := day.DateIndex + 48*domain.SlotMillis
	samples := make([]timedRecord, 0, len(records))
	for _, r := range records {
		ts, err := strconv.ParseInt(string(r.DataTimestamp), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid dataTimestamp %q", domain.ErrVendor, r.DataTimestamp)
		}
		if ts < day.DateIndex || ts >= dayEnd {
			continue
		}
		samples = append(samples, timedRecord{ts: ts, record: r})
	}
	slices.SortStableFunc(samples, func(a, b timedRecord) int {
		return cmp.Compare(a.ts, b.ts)
	})

	snapshots := make([]domain.StoredSnapshot, 0, len(samples))
	for _, s := range samples {
		slot := day.DateIndex + (s.ts-day.DateIndex)/domain.SlotMillis*domain.SlotMillis
		snapshots = append(snapshots, domain.StoredSnapshot{
			SnapshotKey: domain.SnapshotKey{DateIndex: day.DateIndex, TimeIndex: slot},
			Snapshot:    s.record.toSnapshot(),
		})
	}
	return snapshots, nil
}

// ensure interface compliance
var _ port.TelemetrySource = (*Telemetry)(nil)
