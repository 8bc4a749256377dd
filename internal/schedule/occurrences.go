package schedule

import "time"

// Occurrences returns the ordered trigger instants for this entry on the
// given calendar date.
//
// Semantics carried over from the original application, quirks included:
//
//   - Only moments whose clock time is at or before now's clock time are
//     returned (except Daily, which always yields its slot, and Weekly with
//     interval 0). Past-due moments earlier the same day ARE included;
//     downstream relies on that for catch-up firing.
//   - Monthly ignores Interval entirely.
//   - Weekly approximates "every Nth week" by membership of the date in the
//     weekday's dates within now's calendar month, not a true N-week stride.
//   - Daily yields its slot unconditionally here; once-per-day enforcement
//     happens in the evaluator via LastTriggered.
//   - Hourly steps from now's hour to midnight by Interval, firing at the
//     entry's minute.
//
// Suspended entries and dates outside [StartsOn, EndsOn] yield nothing.
// Malformed configurations (empty day sets, inverted date range,
// non-positive hourly interval) also yield nothing rather than erroring, so
// one bad entry can't halt evaluation of the rest.
func (e Entry) Occurrences(forDate, now time.Time) []time.Time {
	if e.Suspended {
		return nil
	}
	day := DateOf(forDate)
	if day.Before(DateOf(e.StartsOn)) || day.After(DateOf(e.EndsOn)) {
		return nil
	}

	nowClock := TimeOfDayOf(now)
	var out []time.Time

	switch e.Frequency {
	case OneTime:
		if SameDate(day, e.StartsOn) && !e.At.After(nowClock) {
			out = append(out, e.At.On(day))
		}
	case Monthly:
		for _, dom := range sortedInts(e.MonthDays) {
			// Day 31 in a shorter month never matches; that's accepted.
			if dom == day.Day() && !e.At.After(nowClock) {
				out = append(out, e.At.On(day))
			}
		}
	case Weekly:
		wd := WeekDayOf(day)
		for _, w := range sortedWeekDays(e.Weekdays) {
			if w != wd {
				continue
			}
			if e.Interval == 0 {
				out = append(out, e.At.On(day))
			} else if inWeekdayDatesOfMonth(day, now, w) && !e.At.After(nowClock) {
				out = append(out, e.At.On(day))
			}
		}
	case Daily:
		out = append(out, e.At.On(day))
	case Hourly:
		if e.Interval < 1 {
			return nil
		}
		for h := now.Hour(); h < 24; h += e.Interval {
			out = append(out, time.Date(day.Year(), day.Month(), day.Day(), h, e.At.Minute, 0, 0, day.Location()))
		}
	}
	return out
}

// inWeekdayDatesOfMonth reports whether day is one of the dates in now's
// calendar month that fall on the given weekday. This is the original
// month-boundary approximation of the weekly interval; we keep its shape
// but include the month's last day, which the original skipped.
func inWeekdayDatesOfMonth(day, now time.Time, w WeekDay) bool {
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	for d := first; d.Month() == m; d = d.AddDate(0, 0, 1) {
		if WeekDayOf(d) == w && SameDate(d, day) {
			return true
		}
	}
	return false
}
