package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the recurrence kind of a schedule entry.
type Frequency int

const (
	Hourly Frequency = iota + 1
	Daily
	Weekly
	Monthly
	OneTime
)

var frequencyNames = map[Frequency]string{
	Hourly:  "Hourly",
	Daily:   "Daily",
	Weekly:  "Weekly",
	Monthly: "Monthly",
	OneTime: "One_Time",
}

func (f Frequency) String() string {
	if s, ok := frequencyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

func (f Frequency) Valid() bool {
	_, ok := frequencyNames[f]
	return ok
}

// ParseFrequency resolves a persisted frequency name.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	for k, n := range frequencyNames {
		if strings.EqualFold(n, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown frequency %q", s)
}

// WeekDay numbers Monday..Sunday as 1..7 (ISO numbering).
//
// The whole codebase indexes weekdays this way; WeekDayOf is the only place
// that converts from time.Weekday, so the convention can't drift.
type WeekDay int

const (
	Monday WeekDay = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekDayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (w WeekDay) String() string {
	if w >= Monday && w <= Sunday {
		return weekDayNames[w-1]
	}
	return fmt.Sprintf("WeekDay(%d)", int(w))
}

func (w WeekDay) Valid() bool { return w >= Monday && w <= Sunday }

// WeekDayOf maps a date to its WeekDay (time.Weekday counts Sunday as 0).
func WeekDayOf(t time.Time) WeekDay {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return WeekDay(wd)
}

// ParseWeekDay resolves a persisted weekday name.
func ParseWeekDay(s string) (WeekDay, error) {
	s = strings.TrimSpace(s)
	for i, n := range weekDayNames {
		if strings.EqualFold(n, s) {
			return WeekDay(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// WeekDays lists Monday..Sunday in order.
func WeekDays() []WeekDay {
	return []WeekDay{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}
