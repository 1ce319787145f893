package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// Moment is the calendar view of an absolute instant as produced by the clock
// utility. All indexes are milliseconds since the unix epoch.
type Moment struct {
	TimeIndex             int64
	DateIndex             int64
	TimeText              string // HH:MM
	DayText               string // 2006-01-02
	MonthText             string
	Year                  int
	DaylightSaving        bool
	Minute                int
	SlotTimeIndex         int64
	SlotEndTimeIndex      int64
	PreviousSlotTimeIndex int64
}

// TopOfHour reports whether the moment is exactly on an hour boundary slot.
func (m Moment) TopOfHour() bool {
	return m.Minute == 0
}

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// MinuteOfDay parses a zero padded HH:MM time of day into minutes after
// midnight.
func MinuteOfDay(text string) (int, error) {
	m := timeOfDayPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", text)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm, nil
}
