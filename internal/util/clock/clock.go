package clock

import (
	"fmt"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
)

const slot = 30 * time.Minute

// Clock is the calendar utility for one time zone. The now function can be
// replaced to pin the current instant in tests.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Clock {
	return &Clock{loc: loc, now: time.Now}
}

// NewFixed returns a clock whose current instant is always t.
func NewFixed(loc *time.Location, t time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

func FromZone(name string) (*Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return New(loc), nil
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() domain.Moment {
	return c.moment(c.now())
}

func (c *Clock) At(timeIndex int64) domain.Moment {
	return c.moment(time.UnixMilli(timeIndex))
}

func (c *Clock) AtMidnight(dayOffset int) domain.Moment {
	t := c.now().In(c.loc)
	return c.moment(time.Date(t.Year(), t.Month(), t.Day()+dayOffset, 0, 0, 0, 0, c.loc))
}

// AtTime resolves an HH:MM time of day on the day starting at dateIndex.
func (c *Clock) AtTime(text string, dateIndex int64) (domain.Moment, error) {
	minute, err := domain.MinuteOfDay(text)
	if err != nil {
		return domain.Moment{}, err
	}
	day := time.UnixMilli(dateIndex).In(c.loc)
	return c.moment(time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, c.loc)), nil
}

func (c *Clock) moment(t time.Time) domain.Moment {
	t = t.In(c.loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	slotStart := midnight.Add(t.Sub(midnight) / slot * slot)
	return domain.Moment{
		TimeIndex:             t.UnixMilli(),
		DateIndex:             midnight.UnixMilli(),
		TimeText:              t.Format("15:04"),
		DayText:               t.Format(time.DateOnly),
		MonthText:             t.Format("Jan"),
		Year:                  t.Year(),
		DaylightSaving:        t.IsDST(),
		Minute:                t.Minute(),
		SlotTimeIndex:         slotStart.UnixMilli(),
		SlotEndTimeIndex:      slotStart.Add(slot).UnixMilli(),
		PreviousSlotTimeIndex: slotStart.Add(-slot).UnixMilli(),
	}
}

// ensure interface compliance
var _ port.Clock = (*Clock)(nil)
