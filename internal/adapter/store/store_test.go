package store

import (
	"path/filepath"
	"testing"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repo interface {
	port.SnapshotRepository
	port.PriceRepository
	port.ChargeHistoryRepository
	PutPrice(key domain.SnapshotKey, price float64) error
}

func repositories(t *testing.T) map[string]repo {
	sqliteStore, err := NewSQLite(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })
	return map[string]repo{
		"memory": NewMemory(),
		"sqlite": sqliteStore,
	}
}

const (
	day1 int64 = 1_704_067_200_000
	day2       = day1 + 86_400_000
)

func key(date int64, slot int64) domain.SnapshotKey {
	return domain.SnapshotKey{DateIndex: date, TimeIndex: date + slot*domain.SlotMillis}
}

func TestInsertIsWriteOnce(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			written, err := r.Insert(key(day1, 1), domain.Snapshot{HouseLoadTotal: 1.5})
			require.NoError(err)
			require.True(written)

			written, err = r.Insert(key(day1, 1), domain.Snapshot{HouseLoadTotal: 9})
			require.NoError(err)
			require.False(written, "duplicate key must not be written")

			s, err := r.Get(key(day1, 1))
			require.NoError(err)
			require.NotNil(s)
			require.Equal(1.5, s.HouseLoadTotal)

			s, err = r.Get(key(day1, 2))
			require.NoError(err)
			require.Nil(s)
		})
	}
}

func TestNeighbours(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			for _, slot := range []int64{2, 4, 6} {
				_, err := r.Insert(key(day1, slot), domain.Snapshot{HouseLoadTotal: float64(slot)})
				require.NoError(t, err)
			}
			_, err := r.Insert(key(day2, 0), domain.Snapshot{HouseLoadTotal: 100})
			require.NoError(t, err)

			before, err := r.Before(key(day1, 4))
			require.NoError(t, err)
			assert.Equal(key(day1, 2), before.SnapshotKey)

			after, err := r.After(key(day1, 4))
			require.NoError(t, err)
			assert.Equal(key(day1, 6), after.SnapshotKey)

			after, err = r.After(key(day1, 6))
			require.NoError(t, err)
			assert.Nil(after, "lookups never cross into the next day")

			before, err = r.Before(key(day1, 2))
			require.NoError(t, err)
			assert.Nil(before)

			snapshots, err := r.Day(day1)
			require.NoError(t, err)
			assert.Len(snapshots, 3)
			assert.Equal(6.0, snapshots[2].HouseLoadTotal)
		})
	}
}

func TestDaysDeleteAndClear(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			_, _ = r.Insert(key(day2, 0), domain.Snapshot{HouseLoadTotal: 1})
			_, _ = r.Insert(key(day1, 0), domain.Snapshot{HouseLoadTotal: 1})
			_, _ = r.Insert(key(day1, 1), domain.Snapshot{HouseLoadTotal: 2})

			days, err := r.Days()
			require.NoError(err)
			require.Equal([]int64{day1, day2}, days)

			require.NoError(r.DeleteDay(day1))
			days, err = r.Days()
			require.NoError(err)
			require.Equal([]int64{day2}, days)

			require.NoError(r.Clear())
			days, err = r.Days()
			require.NoError(err)
			require.Empty(days)
		})
	}
}

func TestPricesAndChargeEvents(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			_, ok, err := r.Price(key(day1, 3))
			require.NoError(err)
			require.False(ok)

			require.NoError(r.PutPrice(key(day1, 3), 12.5))
			p, ok, err := r.Price(key(day1, 3))
			require.NoError(err)
			require.True(ok)
			require.Equal(12.5, p)

			e, err := r.Event(day1)
			require.NoError(err)
			require.Nil(e)

			require.NoError(r.PutEvent(day1, domain.ChargeEvent{Start: 40, StartMinute: 2}))
			end := 55.0
			require.NoError(r.PutEvent(day1, domain.ChargeEvent{Start: 40, StartMinute: 2, End: &end}))

			e, err = r.Event(day1)
			require.NoError(err)
			require.NotNil(e)
			require.Equal(40.0, e.Start)
			require.Equal(2, e.StartMinute)
			require.NotNil(e.End)
			require.Equal(55.0, *e.End)
		})
	}
}
