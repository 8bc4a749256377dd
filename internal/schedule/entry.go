package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Key identifies one schedule entry. Sequence numbers are assigned per
// subject starting at 1 and are never reused while the entry exists;
// uniqueness is enforced by the store at creation time, not here.
type Key struct {
	SubjectID string
	SeqNbr    int
}

func (k Key) String() string { return fmt.Sprintf("%s:%d", k.SubjectID, k.SeqNbr) }

// Entry is one recurring-or-one-shot reminder configuration for a subject.
//
// The engine always operates on detached copies retrieved from the store;
// LastTriggered is mutated only through the scheduler's write-back, never by
// callers editing the entry.
type Entry struct {
	SubjectID string
	SeqNbr    int

	Metric MetricKind
	Note   string

	Frequency Frequency
	Weekdays  []WeekDay // Weekly only
	MonthDays []int     // Monthly only, 1..31
	Interval  int       // every N hours/days/weeks; 0 for OneTime
	At        TimeOfDay

	StartsOn time.Time // inclusive, date-only
	EndsOn   time.Time // inclusive, date-only

	Suspended     bool
	LastTriggered *time.Time
}

func (e Entry) Key() Key { return Key{SubjectID: e.SubjectID, SeqNbr: e.SeqNbr} }

// TriggeredOn reports whether the entry already fired on the given date.
func (e Entry) TriggeredOn(day time.Time) bool {
	return e.LastTriggered != nil && SameDate(*e.LastTriggered, day)
}

// Validate rejects contradictory configurations at the creation/edit path.
// The evaluation path never calls this: a malformed stored entry simply
// produces zero occurrences so one bad row can't halt the batch.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.SubjectID) == "" {
		return errors.New("subject id is required")
	}
	if e.SeqNbr < 1 {
		return errors.New("sequence number must be >= 1")
	}
	if !e.Metric.Valid() {
		return fmt.Errorf("invalid metric kind %d", int(e.Metric))
	}
	if !e.Frequency.Valid() {
		return fmt.Errorf("invalid frequency %d", int(e.Frequency))
	}
	if e.Interval < 0 {
		return errors.New("interval must be >= 0")
	}
	if e.Frequency != OneTime && e.Interval < 1 {
		return fmt.Errorf("%s entries need an interval >= 1", e.Frequency)
	}
	if DateOf(e.StartsOn).After(DateOf(e.EndsOn)) {
		return errors.New("starts-on must not be after ends-on")
	}
	switch e.Frequency {
	case Weekly:
		if len(e.Weekdays) == 0 {
			return errors.New("weekly entries need at least one weekday")
		}
		for _, w := range e.Weekdays {
			if !w.Valid() {
				return fmt.Errorf("invalid weekday %d", int(w))
			}
		}
	case Monthly:
		if len(e.MonthDays) == 0 {
			return errors.New("monthly entries need at least one day of month")
		}
		for _, d := range e.MonthDays {
			// Day 31 in a 30-day month is allowed; it silently never matches.
			if d < 1 || d > 31 {
				return fmt.Errorf("day of month %d out of range 1..31", d)
			}
		}
	}
	return nil
}

// Describe renders a short human-readable summary, used for job
// descriptions in completion notifications and for logging.
func (e Entry) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seq %d %s %s", e.SeqNbr, e.Metric.Label(), e.Frequency)
	if e.Suspended {
		b.WriteString(" (suspended)")
	}
	switch e.Frequency {
	case OneTime:
		fmt.Fprintf(&b, " on %s at %s", DateOf(e.StartsOn).Format("2006-01-02"), e.At)
	case Monthly:
		fmt.Fprintf(&b, " on days %s at %s", joinInts(sortedInts(e.MonthDays)), e.At)
	case Weekly:
		days := make([]string, 0, len(e.Weekdays))
		for _, w := range sortedWeekDays(e.Weekdays) {
			days = append(days, w.String())
		}
		fmt.Fprintf(&b, " every %d week(s) on %s at %s", e.Interval, strings.Join(days, ","), e.At)
	case Daily:
		fmt.Fprintf(&b, " every %d day(s) at %s", e.Interval, e.At)
	case Hourly:
		fmt.Fprintf(&b, " every %d hour(s) at :%02d", e.Interval, e.At.Minute)
	}
	return b.String()
}

func sortedInts(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

func sortedWeekDays(in []WeekDay) []WeekDay {
	out := append([]WeekDay(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinInts(in []int) string {
	parts := make([]string, 0, len(in))
	for _, v := range in {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

// FormatWeekDaySet / ParseWeekDaySet are the storage encoding for the
// weekday set (comma-separated names, sorted for stable rows).
func FormatWeekDaySet(in []WeekDay) string {
	parts := make([]string, 0, len(in))
	for _, w := range sortedWeekDays(in) {
		parts = append(parts, w.String())
	}
	return strings.Join(parts, ",")
}

func ParseWeekDaySet(s string) ([]WeekDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []WeekDay
	for _, part := range strings.Split(s, ",") {
		w, err := ParseWeekDay(part)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// FormatMonthDaySet / ParseMonthDaySet encode the day-of-month set as
// comma-separated numbers.
func FormatMonthDaySet(in []int) string {
	return joinInts(sortedInts(in))
}

func ParseMonthDaySet(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid day of month %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
