package port

import "github.com/berfenger/solisagility/internal/core/domain"

// SnapshotRepository is the typed view of the solis/{dateIndex}/{timeIndex}
// sub-tree of the persistent store.
type SnapshotRepository interface {
	// Insert writes the snapshot if the key is absent and reports whether a
	// write occurred.
	Insert(key domain.SnapshotKey, snapshot domain.Snapshot) (bool, error)
	Get(key domain.SnapshotKey) (*domain.Snapshot, error)
	// Before returns the latest snapshot of the day strictly before timeIndex.
	Before(key domain.SnapshotKey) (*domain.StoredSnapshot, error)
	// After returns the earliest snapshot of the day strictly after timeIndex.
	After(key domain.SnapshotKey) (*domain.StoredSnapshot, error)
	// Day returns all snapshots of a day ordered by time index.
	Day(dateIndex int64) ([]domain.StoredSnapshot, error)
	// Days returns the stored date indexes in ascending order.
	Days() ([]int64, error)
	DeleteDay(dateIndex int64) error
	Clear() error
}

// PriceRepository is the octopusAgile.byTime sub-tree. The core only reads it.
type PriceRepository interface {
	Price(key domain.SnapshotKey) (float64, bool, error)
}

// ChargeHistoryRepository is the agilityChargeHistory sub-tree.
type ChargeHistoryRepository interface {
	Event(slotTimeIndex int64) (*domain.ChargeEvent, error)
	PutEvent(slotTimeIndex int64, event domain.ChargeEvent) error
}
