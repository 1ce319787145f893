package service

import (
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
)

// PriceLookup joins a slot with the externally maintained price series.
type PriceLookup struct {
	Repository port.PriceRepository
}

// PriceAt returns the price for the slot; ok is false when the tariff writer
// has not populated it yet.
func (p *PriceLookup) PriceAt(dateIndex, timeIndex int64) (price float64, ok bool, err error) {
	return p.Repository.Price(domain.SnapshotKey{DateIndex: dateIndex, TimeIndex: timeIndex})
}
