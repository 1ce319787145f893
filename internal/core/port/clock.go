package port

import "github.com/berfenger/solisagility/internal/core/domain"

// Clock converts between wall-clock text and absolute time indexes in the
// installation's time zone.
type Clock interface {
	Now() domain.Moment
	At(timeIndex int64) domain.Moment
	AtMidnight(dayOffset int) domain.Moment
	AtTime(text string, dateIndex int64) (domain.Moment, error)
}
