package store

import (
	"fmt"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type snapshotRow struct {
	DateIndex       int64 `gorm:"primaryKey;autoIncrement:false"`
	TimeIndex       int64 `gorm:"primaryKey;autoIncrement:false"`
	domain.Snapshot `gorm:"embedded"`
}

func (snapshotRow) TableName() string { return "solis" }

type priceRow struct {
	DateIndex int64 `gorm:"primaryKey;autoIncrement:false"`
	TimeIndex int64 `gorm:"primaryKey;autoIncrement:false"`
	Price     float64
}

func (priceRow) TableName() string { return "octopus_agile_by_time" }

type chargeEventRow struct {
	SlotTimeIndex int64 `gorm:"primaryKey;autoIncrement:false"`
	Start         float64
	StartMinute   int
	End           *float64
}

func (chargeEventRow) TableName() string { return "agility_charge_history" }

// SQLite persists the store sub-trees to a local sqlite file, one table per
// sub-tree keyed by the same composite indexes.
type SQLite struct {
	db *gorm.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&snapshotRow{}, &priceRow{}, &chargeEventRow{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLite) Insert(key domain.SnapshotKey, snapshot domain.Snapshot) (bool, error) {
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&snapshotRow{
		DateIndex: key.DateIndex,
		TimeIndex: key.TimeIndex,
		Snapshot:  snapshot,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *SQLite) Get(key domain.SnapshotKey) (*domain.Snapshot, error) {
	var rows []snapshotRow
	result := s.db.Where("date_index = ? AND time_index = ?", key.DateIndex, key.TimeIndex).Limit(1).Find(&rows)
	if result.Error != nil || len(rows) == 0 {
		return nil, result.Error
	}
	return &rows[0].Snapshot, nil
}

func (s *SQLite) Before(key domain.SnapshotKey) (*domain.StoredSnapshot, error) {
	return s.first(s.db.Where("date_index = ? AND time_index < ?", key.DateIndex, key.TimeIndex).Order("time_index desc"))
}

func (s *SQLite) After(key domain.SnapshotKey) (*domain.StoredSnapshot, error) {
	return s.first(s.db.Where("date_index = ? AND time_index > ?", key.DateIndex, key.TimeIndex).Order("time_index asc"))
}

func (s *SQLite) Day(dateIndex int64) ([]domain.StoredSnapshot, error) {
	var rows []snapshotRow
	result := s.db.Where("date_index = ?", dateIndex).Order("time_index asc").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	snapshots := make([]domain.StoredSnapshot, 0, len(rows))
	for _, r := range rows {
		snapshots = append(snapshots, r.stored())
	}
	return snapshots, nil
}

func (s *SQLite) Days() ([]int64, error) {
	var days []int64
	result := s.db.Model(&snapshotRow{}).Distinct("date_index").Order("date_index asc").Pluck("date_index", &days)
	return days, result.Error
}

func (s *SQLite) DeleteDay(dateIndex int64) error {
	return s.db.Where("date_index = ?", dateIndex).Delete(&snapshotRow{}).Error
}

func (s *SQLite) Clear() error {
	return s.db.Where("1 = 1").Delete(&snapshotRow{}).Error
}

// PutPrice is the write path of the external tariff writer.
func (s *SQLite) PutPrice(key domain.SnapshotKey, price float64) error {
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&priceRow{
		DateIndex: key.DateIndex,
		TimeIndex: key.TimeIndex,
		Price:     price,
	}).Error
}

func (s *SQLite) Price(key domain.SnapshotKey) (float64, bool, error) {
	var rows []priceRow
	result := s.db.Where("date_index = ? AND time_index = ?", key.DateIndex, key.TimeIndex).Limit(1).Find(&rows)
	if result.Error != nil || len(rows) == 0 {
		return 0, false, result.Error
	}
	return rows[0].Price, true, nil
}

func (s *SQLite) Event(slotTimeIndex int64) (*domain.ChargeEvent, error) {
	var rows []chargeEventRow
	result := s.db.Where("slot_time_index = ?", slotTimeIndex).Limit(1).Find(&rows)
	if result.Error != nil || len(rows) == 0 {
		return nil, result.Error
	}
	return &domain.ChargeEvent{
		Start:       rows[0].Start,
		StartMinute: rows[0].StartMinute,
		End:         rows[0].End,
	}, nil
}

func (s *SQLite) PutEvent(slotTimeIndex int64, event domain.ChargeEvent) error {
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&chargeEventRow{
		SlotTimeIndex: slotTimeIndex,
		Start:         event.Start,
		StartMinute:   event.StartMinute,
		End:           event.End,
	}).Error
}

func (s *SQLite) first(query *gorm.DB) (*domain.StoredSnapshot, error) {
	var rows []snapshotRow
	result := query.Limit(1).Find(&rows)
	if result.Error != nil || len(rows) == 0 {
		return nil, result.Error
	}
	stored := rows[0].stored()
	return &stored, nil
}

func (r snapshotRow) stored() domain.StoredSnapshot {
	return domain.StoredSnapshot{
		SnapshotKey: domain.SnapshotKey{DateIndex: r.DateIndex, TimeIndex: r.TimeIndex},
		Snapshot:    r.Snapshot,
	}
}

// ensure interface compliance
var _ port.SnapshotRepository = (*SQLite)(nil)
var _ port.PriceRepository = (*SQLite)(nil)
var _ port.ChargeHistoryRepository = (*SQLite)(nil)
