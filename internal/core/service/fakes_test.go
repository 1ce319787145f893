package service

import (
	"context"
	"time"

	"github.com/berfenger/solisagility/internal/adapter/store"
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/util/clock"

	"go.uber.org/zap"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dayIndex(n int) int64 {
	return day0.AddDate(0, 0, n).UnixMilli()
}

func slotIndex(day int, slot int) int64 {
	return dayIndex(day) + int64(slot)*domain.SlotMillis
}

type fixture struct {
	mem    *store.Memory
	series *TimeSeries
	stats  *Statistics
	clock  *clock.Clock
}

func newFixture(now time.Time) *fixture {
	logger := zap.Must(zap.NewDevelopment())
	mem := store.NewMemory()
	c := clock.NewFixed(time.UTC, now)
	series := NewTimeSeries(mem, logger)
	return &fixture{
		mem:    mem,
		series: series,
		stats:  NewStatistics(series, &PriceLookup{Repository: mem}, c, logger),
		clock:  c,
	}
}

// fillDay stores one snapshot per boundary with the given house load totals;
// PV totals are half the house load.
func (f *fixture) fillDay(day int, houseLoad ...float64) {
	for i, v := range houseLoad {
		f.mem.Insert(domain.SnapshotKey{DateIndex: dayIndex(day), TimeIndex: slotIndex(day, i)}, domain.Snapshot{
			HouseLoadTotal:  v,
			PVOutputTotal:   v / 2,
			GridImportTotal: v / 4,
			BatteryLevel:    float64(10 + i),
		})
	}
}

type inverterCall struct {
	Op       string
	From, To string
}

type fakeInverter struct {
	calls  []inverterCall
	result domain.ActionResult
}

func (f *fakeInverter) record(op, from, to string) domain.ActionResult {
	f.calls = append(f.calls, inverterCall{Op: op, From: from, To: to})
	if f.result.Kind == "" {
		return domain.OK("%s done", op)
	}
	return f.result
}

func (f *fakeInverter) ChargeNow(ctx context.Context, d time.Duration) domain.ActionResult {
	return f.record("chargeNow", "", d.String())
}

func (f *fakeInverter) ChargeBetween(ctx context.Context, from, to string) domain.ActionResult {
	return f.record("charge", from, to)
}

func (f *fakeInverter) DischargeNow(ctx context.Context) domain.ActionResult {
	return f.record("dischargeNow", "", "")
}

func (f *fakeInverter) DischargeBetween(ctx context.Context, from, to string) domain.ActionResult {
	return f.record("discharge", from, to)
}

func (f *fakeInverter) GridOnlyNow(ctx context.Context) domain.ActionResult {
	return f.record("gridOnlyNow", "", "")
}

func (f *fakeInverter) GridOnlyBetween(ctx context.Context, from, to string) domain.ActionResult {
	return f.record("gridOnly", from, to)
}

func (f *fakeInverter) ResetNow(ctx context.Context) domain.ActionResult {
	return f.record("reset", "", "")
}

func (f *fakeInverter) ResetScheduled(ctx context.Context) domain.ActionResult {
	return f.record("resetScheduled", "", "")
}

func (f *fakeInverter) SyncClock(ctx context.Context) domain.ActionResult {
	return f.record("syncClock", "", "")
}

type fakeTelemetry struct {
	days     map[int64][]domain.StoredSnapshot
	failDays map[int64]bool
	requests []int64
}

func (f *fakeTelemetry) InverterDay(ctx context.Context, day domain.Moment) ([]domain.StoredSnapshot, error) {
	f.requests = append(f.requests, day.DateIndex)
	if f.failDays[day.DateIndex] {
		return nil, domain.ErrTransport
	}
	return f.days[day.DateIndex], nil
}

type fakeFlags struct {
	charging, discharging, timeSync bool
	period                          int
}

func (f fakeFlags) ChargingEnabled() bool              { return f.charging }
func (f fakeFlags) DischargingEnabled() bool           { return f.discharging }
func (f fakeFlags) MovingAveragePeriod() int           { return f.period }
func (f fakeFlags) KeepInverterTimeSynchronised() bool { return f.timeSync }

type fakeBattery struct {
	unsets int
}

func (f *fakeBattery) UnsetDischargeControlFlag() error {
	f.unsets++
	return nil
}
