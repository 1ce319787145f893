package store

import (
	"slices"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
)

// Memory is a map backed store holding the snapshot, price and charge
// history sub-trees. It is not safe for concurrent use.
type Memory struct {
	snapshots map[int64]map[int64]domain.Snapshot
	prices    map[domain.SnapshotKey]float64
	events    map[int64]domain.ChargeEvent
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: map[int64]map[int64]domain.Snapshot{},
		prices:    map[domain.SnapshotKey]float64{},
		events:    map[int64]domain.ChargeEvent{},
	}
}

func (m *Memory) Insert(key domain.SnapshotKey, snapshot domain.Snapshot) (bool, error) {
	day, ok := m.snapshots[key.DateIndex]
	if !ok {
		day = map[int64]domain.Snapshot{}
		m.snapshots[key.DateIndex] = day
	}
	if _, exists := day[key.TimeIndex]; exists {
		return false, nil
	}
	day[key.TimeIndex] = snapshot
	return true, nil
}

func (m *Memory) Get(key domain.SnapshotKey) (*domain.Snapshot, error) {
	if s, ok := m.snapshots[key.DateIndex][key.TimeIndex]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) Before(key domain.SnapshotKey) (*domain.StoredSnapshot, error) {
	times := m.sortedTimes(key.DateIndex)
	for i := len(times) - 1; i >= 0; i-- {
		if times[i] < key.TimeIndex {
			return m.stored(key.DateIndex, times[i]), nil
		}
	}
	return nil, nil
}

func (m *Memory) After(key domain.SnapshotKey) (*domain.StoredSnapshot, error) {
	for _, t := range m.sortedTimes(key.DateIndex) {
		if t > key.TimeIndex {
			return m.stored(key.DateIndex, t), nil
		}
	}
	return nil, nil
}

func (m *Memory) Day(dateIndex int64) ([]domain.StoredSnapshot, error) {
	times := m.sortedTimes(dateIndex)
	result := make([]domain.StoredSnapshot, 0, len(times))
	for _, t := range times {
		result = append(result, *m.stored(dateIndex, t))
	}
	return result, nil
}

func (m *Memory) Days() ([]int64, error) {
	days := make([]int64, 0, len(m.snapshots))
	for d := range m.snapshots {
		days = append(days, d)
	}
	slices.Sort(days)
	return days, nil
}

func (m *Memory) DeleteDay(dateIndex int64) error {
	delete(m.snapshots, dateIndex)
	return nil
}

func (m *Memory) Clear() error {
	m.snapshots = map[int64]map[int64]domain.Snapshot{}
	return nil
}

// PutPrice is the write path of the external tariff writer.
func (m *Memory) PutPrice(key domain.SnapshotKey, price float64) error {
	m.prices[key] = price
	return nil
}

func (m *Memory) Price(key domain.SnapshotKey) (float64, bool, error) {
	p, ok := m.prices[key]
	return p, ok, nil
}

func (m *Memory) Event(slotTimeIndex int64) (*domain.ChargeEvent, error) {
	if e, ok := m.events[slotTimeIndex]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *Memory) PutEvent(slotTimeIndex int64, event domain.ChargeEvent) error {
	m.events[slotTimeIndex] = event
	return nil
}

func (m *Memory) sortedTimes(dateIndex int64) []int64 {
	day := m.snapshots[dateIndex]
	times := make([]int64, 0, len(day))
	for t := range day {
		times = append(times, t)
	}
	slices.Sort(times)
	return times
}

func (m *Memory) stored(dateIndex, timeIndex int64) *domain.StoredSnapshot {
	return &domain.StoredSnapshot{
		SnapshotKey: domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex},
		Snapshot:    m.snapshots[dateIndex][timeIndex],
	}
}

// ensure interface compliance
var _ port.SnapshotRepository = (*Memory)(nil)
var _ port.PriceRepository = (*Memory)(nil)
var _ port.ChargeHistoryRepository = (*Memory)(nil)
