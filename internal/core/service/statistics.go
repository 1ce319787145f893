package service

import (
	"errors"
	"fmt"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"

	"go.uber.org/zap"
)

const (
	firstSlotText = "00:00"
	lastSlotText  = "23:30"
)

// Statistics derives consumption figures from the cumulative counters in the
// time-series store. It only reads.
type Statistics struct {
	Series *TimeSeries
	Prices *PriceLookup
	Clock  port.Clock
	Logger *zap.Logger
}

func NewStatistics(series *TimeSeries, prices *PriceLookup, clock port.Clock, logger *zap.Logger) *Statistics {
	return &Statistics{
		Series: series,
		Prices: prices,
		Clock:  clock,
		Logger: logger.With(zap.String("component", "statistics")),
	}
}

// PowerAt returns the snapshot recorded at timeIndex or, failing that, the
// nearer of its neighbours within the day. Equidistant neighbours resolve to
// the earlier one.
func (s *Statistics) PowerAt(dateIndex, timeIndex int64) (*domain.StoredSnapshot, error) {
	exact, err := s.Series.SnapshotAt(dateIndex, timeIndex)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return &domain.StoredSnapshot{
			SnapshotKey: domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex},
			Snapshot:    *exact,
		}, nil
	}
	before, err := s.Series.NearestBefore(dateIndex, timeIndex)
	if err != nil {
		return nil, err
	}
	after, err := s.Series.NearestAfter(dateIndex, timeIndex)
	if err != nil {
		return nil, err
	}
	switch {
	case before == nil && after == nil:
		return nil, domain.ErrSnapshotNotFound
	case after == nil:
		return before, nil
	case before == nil:
		return after, nil
	case after.TimeIndex-timeIndex < timeIndex-before.TimeIndex:
		return after, nil
	default:
		return before, nil
	}
}

// History returns the per-slot deltas of the cumulative counters for one day,
// up to the last slot that has already ended.
func (s *Statistics) History(dateIndex int64) ([]domain.HistorySlot, error) {
	snapshots, err := s.Series.Day(dateIndex)
	if err != nil {
		return nil, err
	}
	slots := []domain.HistorySlot{}
	if len(snapshots) == 0 {
		return slots, nil
	}

	now := s.Clock.Now().TimeIndex
	prev := snapshots[0].Snapshot
	for i := int64(0); i < domain.SlotsPerDay; i++ {
		start := dateIndex + i*domain.SlotMillis
		end := start + domain.SlotMillis
		if end > now {
			break
		}
		cur, err := s.PowerAt(dateIndex, end)
		if err != nil {
			return nil, err
		}
		slot := domain.HistorySlot{
			SlotTimeIndex: start,
			TimeText:      s.Clock.At(start).TimeText,
			PVOutput:      cur.PVOutputTotal - prev.PVOutputTotal,
			HouseLoad:     cur.HouseLoadTotal - prev.HouseLoadTotal,
			GridImport:    cur.GridImportTotal - prev.GridImportTotal,
			GridExport:    cur.GridExportTotal - prev.GridExportTotal,
			BatteryLevel:  cur.BatteryLevel,
		}
		price, ok, err := s.Prices.PriceAt(dateIndex, start)
		if err != nil {
			return nil, err
		}
		if ok {
			slot.Price = &price
		}
		slots = append(slots, slot)
		prev = cur.Snapshot
	}
	return slots, nil
}

// AverageBetween averages consumption and production between two times of
// day over every complete day. A window that crosses midnight is computed as
// from-23:30 plus 00:00-to.
func (s *Statistics) AverageBetween(from, to string) (domain.Average, error) {
	fromMinute, err := domain.MinuteOfDay(from)
	if err != nil {
		return domain.Average{}, err
	}
	toMinute, err := domain.MinuteOfDay(to)
	if err != nil {
		return domain.Average{}, err
	}
	if fromMinute > toMinute {
		late, err := s.averageSameDay(from, lastSlotText)
		if err != nil {
			return domain.Average{}, err
		}
		early, err := s.averageSameDay(firstSlotText, to)
		if err != nil {
			return domain.Average{}, err
		}
		return domain.Average{
			Consumption: late.Consumption + early.Consumption,
			Production:  late.Production + early.Production,
			Days:        late.Days,
		}, nil
	}
	return s.averageSameDay(from, to)
}

func (s *Statistics) averageSameDay(from, to string) (domain.Average, error) {
	days, err := s.Series.CompleteDays()
	if err != nil {
		return domain.Average{}, err
	}
	var consumption, production float64
	count := 0
	for _, day := range days {
		start, end, err := s.window(day, from, to)
		if err != nil {
			return domain.Average{}, err
		}
		a, err := s.PowerAt(day, start)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			continue
		} else if err != nil {
			return domain.Average{}, err
		}
		b, err := s.PowerAt(day, end)
		if err != nil {
			return domain.Average{}, err
		}
		consumption += b.HouseLoadTotal - a.HouseLoadTotal
		production += b.PVOutputTotal - a.PVOutputTotal
		count++
	}
	if count == 0 {
		return domain.Average{}, domain.ErrNoHistoricalData
	}
	return domain.Average{
		Consumption: consumption / float64(count),
		Production:  production / float64(count),
		Days:        count,
	}, nil
}

// DailyProfile averages the per-slot consumption across complete days. A
// reading lower than the running total is clamped to it, so every slot is
// non-negative.
func (s *Statistics) DailyProfile() ([]domain.ProfileSlot, error) {
	days, err := s.Series.CompleteDays()
	if err != nil {
		return nil, err
	}
	var sums [domain.SlotsPerDay]float64
	count := 0
	var reference int64
	for _, day := range days {
		base, err := s.PowerAt(day, day)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		running := base.HouseLoadTotal
		for i := int64(0); i < domain.SlotsPerDay; i++ {
			cur, err := s.PowerAt(day, day+(i+1)*domain.SlotMillis)
			if err != nil {
				return nil, err
			}
			v := max(cur.HouseLoadTotal, running)
			sums[i] += v - running
			running = v
		}
		if count == 0 {
			reference = day
		}
		count++
	}
	if count == 0 {
		return nil, domain.ErrNoHistoricalData
	}

	profile := make([]domain.ProfileSlot, 0, domain.SlotsPerDay)
	for i, sum := range sums {
		profile = append(profile, domain.ProfileSlot{
			TimeText:    s.Clock.At(reference + int64(i)*domain.SlotMillis).TimeText,
			Consumption: sum / float64(count),
		})
	}
	return profile, nil
}

func (s *Statistics) window(day int64, from, to string) (int64, int64, error) {
	start, err := s.Clock.AtTime(from, day)
	if err != nil {
		return 0, 0, fmt.Errorf("average start: %w", err)
	}
	end, err := s.Clock.AtTime(to, day)
	if err != nil {
		return 0, 0, fmt.Errorf("average end: %w", err)
	}
	return start.TimeIndex, end.TimeIndex, nil
}
