package service

import (
	"context"
	"fmt"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"

	"go.uber.org/zap"
)

// Agility orchestrates the slot actions against the inverter and keeps the
// local time-series and charge history in step. It holds no locks; callers
// run one operation at a time.
type Agility struct {
	Inverter  port.InverterControl
	Telemetry port.TelemetrySource
	Series    *TimeSeries
	History   port.ChargeHistoryRepository
	Clock     port.Clock
	Flags     port.AgilityFlags
	Battery   port.Battery
	Logger    *zap.Logger
}

// ChargeSlot charges from now to the end of the current slot unless charging
// is disabled and override is not set.
func (a *Agility) ChargeSlot(ctx context.Context, override bool) domain.ActionResult {
	if !override && !a.Flags.ChargingEnabled() {
		return domain.Noop("charging disabled")
	}
	now := a.Clock.Now()
	if err := a.recordChargeStart(now); err != nil {
		a.Logger.Warn("agility@chargeSlot: could not record charge history", zap.Error(err))
	}
	return a.Inverter.ChargeBetween(ctx, now.TimeText, a.slotEnd(now))
}

// DischargeSlot discharges until the end of the current slot and clears the
// battery collaborator's pending discharge request on success.
func (a *Agility) DischargeSlot(ctx context.Context, override bool) domain.ActionResult {
	if !override && !a.Flags.DischargingEnabled() {
		return domain.Noop("discharging disabled")
	}
	now := a.Clock.Now()
	result := a.Inverter.DischargeBetween(ctx, now.TimeText, a.slotEnd(now))
	if !result.HasResponseError() {
		if err := a.Battery.UnsetDischargeControlFlag(); err != nil {
			a.Logger.Warn("agility@dischargeSlot: could not clear discharge flag", zap.Error(err))
		}
	}
	return result
}

// GridOnlySlot keeps the battery idle for the rest of the slot.
func (a *Agility) GridOnlySlot(ctx context.Context, override bool) domain.ActionResult {
	if !override && !a.Flags.ChargingEnabled() {
		return domain.Noop("charging disabled")
	}
	now := a.Clock.Now()
	return a.Inverter.GridOnlyBetween(ctx, now.TimeText, a.slotEnd(now))
}

func (a *Agility) ChargeBetween(ctx context.Context, w domain.Window) domain.ActionResult {
	return a.Inverter.ChargeBetween(ctx, w.From, w.To)
}

func (a *Agility) DischargeBetween(ctx context.Context, w domain.Window) domain.ActionResult {
	return a.Inverter.DischargeBetween(ctx, w.From, w.To)
}

func (a *Agility) GridOnlyBetween(ctx context.Context, w domain.Window) domain.ActionResult {
	return a.Inverter.GridOnlyBetween(ctx, w.From, w.To)
}

// ResetSlot clears the inverter windows when called on the hour.
func (a *Agility) ResetSlot(ctx context.Context) domain.ActionResult {
	return a.Inverter.ResetScheduled(ctx)
}

func (a *Agility) ResetNow(ctx context.Context) domain.ActionResult {
	return a.Inverter.ResetNow(ctx)
}

func (a *Agility) SyncClock(ctx context.Context) domain.ActionResult {
	if !a.Flags.KeepInverterTimeSynchronised() {
		return domain.Noop("inverter time synchronisation disabled")
	}
	return a.Inverter.SyncClock(ctx)
}

// RefreshTelemetry pulls one day of vendor telemetry, dayOffset days from
// today, and appends the snapshots not stored yet.
func (a *Agility) RefreshTelemetry(ctx context.Context, dayOffset int) domain.ActionResult {
	day := a.Clock.AtMidnight(dayOffset)
	snapshots, err := a.Telemetry.InverterDay(ctx, day)
	if err != nil {
		return domain.Failure(fmt.Errorf("telemetry for %s: %w", day.DayText, err))
	}
	added := 0
	for _, s := range snapshots {
		written, err := a.Series.Append(s.DateIndex, s.TimeIndex, s.Snapshot)
		if err != nil {
			return domain.Failure(fmt.Errorf("store snapshot for %s: %w", day.DayText, err))
		}
		if written {
			added++
		}
	}
	a.Logger.Sugar().Debugf("agility@refreshTelemetry: %s: %d of %d samples added", day.DayText, added, len(snapshots))
	return domain.OK("%s: %d snapshots added", day.DayText, added)
}

// RebuildHistory drops the whole time-series and reloads today plus the
// retained window. A failing day is logged and skipped.
func (a *Agility) RebuildHistory(ctx context.Context) domain.ActionResult {
	if err := a.Series.Clear(); err != nil {
		return domain.Failure(fmt.Errorf("clear time series: %w", err))
	}
	period := a.Flags.MovingAveragePeriod()
	failures := 0
	for offset := 0; offset >= -period; offset-- {
		res := a.RefreshTelemetry(ctx, offset)
		if res.HasResponseError() {
			failures++
			a.Logger.Error("agility@rebuildHistory: day failed", zap.Int("dayOffset", offset), zap.Error(res.ResponseError))
		}
	}
	return domain.OK("history rebuilt for %d days, %d failed", period+1, failures)
}

// TrimHistory keeps only the retained window of days.
func (a *Agility) TrimHistory(ctx context.Context) domain.ActionResult {
	pruned, err := a.Series.PruneOlderThan(a.Flags.MovingAveragePeriod())
	if err != nil {
		return domain.Failure(fmt.Errorf("trim history: %w", err))
	}
	return domain.OK("%d days removed", pruned)
}

// recordChargeStart stores the start event of the current slot and completes
// the event of the previous slot with the current battery level.
func (a *Agility) recordChargeStart(now domain.Moment) error {
	level, err := a.batteryLevel()
	if err != nil {
		return err
	}
	prev, err := a.History.Event(now.PreviousSlotTimeIndex)
	if err != nil {
		return err
	}
	if prev != nil && prev.End == nil {
		prev.End = &level
		if err := a.History.PutEvent(now.PreviousSlotTimeIndex, *prev); err != nil {
			return err
		}
	}
	return a.History.PutEvent(now.SlotTimeIndex, domain.ChargeEvent{
		Start:       level,
		StartMinute: now.Minute,
	})
}

func (a *Agility) batteryLevel() (float64, error) {
	latest, err := a.Series.Latest()
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, domain.ErrSnapshotNotFound
	}
	return latest.BatteryLevel, nil
}

func (a *Agility) slotEnd(now domain.Moment) string {
	return a.Clock.At(now.SlotEndTimeIndex).TimeText
}
