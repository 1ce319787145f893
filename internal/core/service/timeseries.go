package service

import (
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"

	"go.uber.org/zap"
)

// TimeSeries is the append-only store of half-hourly snapshots.
type TimeSeries struct {
	Repository port.SnapshotRepository
	Logger     *zap.Logger
}

func NewTimeSeries(repo port.SnapshotRepository, logger *zap.Logger) *TimeSeries {
	return &TimeSeries{
		Repository: repo,
		Logger:     logger.With(zap.String("component", "timeseries")),
	}
}

// Append stores the snapshot unless the key is already present or the
// snapshot is suppressed. It reports whether a write occurred.
func (ts *TimeSeries) Append(dateIndex, timeIndex int64, snapshot domain.Snapshot) (bool, error) {
	if snapshot.Suppressed() {
		return false, nil
	}
	return ts.Repository.Insert(domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex}, snapshot)
}

func (ts *TimeSeries) SnapshotAt(dateIndex, timeIndex int64) (*domain.Snapshot, error) {
	return ts.Repository.Get(domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex})
}

func (ts *TimeSeries) NearestBefore(dateIndex, timeIndex int64) (*domain.StoredSnapshot, error) {
	return ts.Repository.Before(domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex})
}

func (ts *TimeSeries) NearestAfter(dateIndex, timeIndex int64) (*domain.StoredSnapshot, error) {
	return ts.Repository.After(domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex})
}

func (ts *TimeSeries) Days() ([]int64, error) {
	return ts.Repository.Days()
}

func (ts *TimeSeries) Day(dateIndex int64) ([]domain.StoredSnapshot, error) {
	return ts.Repository.Day(dateIndex)
}

// LastDay returns the most recent stored day, usually still in progress.
func (ts *TimeSeries) LastDay() (int64, bool, error) {
	return ts.fromEnd(1)
}

// PreviousToLast returns the most recent complete day.
func (ts *TimeSeries) PreviousToLast() (int64, bool, error) {
	return ts.fromEnd(2)
}

// CompleteDays returns every stored day except the most recent one, ascending.
func (ts *TimeSeries) CompleteDays() ([]int64, error) {
	days, err := ts.Repository.Days()
	if err != nil || len(days) == 0 {
		return nil, err
	}
	return days[:len(days)-1], nil
}

// Latest returns the most recent snapshot in the store.
func (ts *TimeSeries) Latest() (*domain.StoredSnapshot, error) {
	day, ok, err := ts.LastDay()
	if err != nil || !ok {
		return nil, err
	}
	snapshots, err := ts.Repository.Day(day)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}
	return &snapshots[len(snapshots)-1], nil
}

// PruneOlderThan deletes every day except the retainDays most recent ones and
// returns how many days were removed.
func (ts *TimeSeries) PruneOlderThan(retainDays int) (int, error) {
	days, err := ts.Repository.Days()
	if err != nil {
		return 0, err
	}
	if retainDays < 0 {
		retainDays = 0
	}
	pruned := 0
	for i := 0; i < len(days)-retainDays; i++ {
		if err := ts.Repository.DeleteDay(days[i]); err != nil {
			return pruned, err
		}
		pruned++
	}
	if pruned > 0 {
		ts.Logger.Sugar().Infof("timeseries@prune: removed %d days, kept %d", pruned, len(days)-pruned)
	}
	return pruned, nil
}

func (ts *TimeSeries) Clear() error {
	return ts.Repository.Clear()
}

func (ts *TimeSeries) fromEnd(n int) (int64, bool, error) {
	days, err := ts.Repository.Days()
	if err != nil || len(days) < n {
		return 0, false, err
	}
	return days[len(days)-n], true, nil
}
