package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func dailyEntry() Entry {
	return Entry{
		SubjectID: "anna",
		SeqNbr:    1,
		Metric:    BloodPressure,
		Frequency: Daily,
		Interval:  1,
		At:        TimeOfDay{Hour: 9},
		StartsOn:  date(2024, 1, 1),
		EndsOn:    date(2024, 12, 31),
	}
}

func TestOccurrencesDaily(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	now := at(2024, 6, 15, 9, 5)

	got := e.Occurrences(now, now)
	if len(got) != 1 {
		t.Fatalf("occurrences = %v, want exactly one", got)
	}
	if want := at(2024, 6, 15, 9, 0); !got[0].Equal(want) {
		t.Fatalf("occurrence = %v, want %v", got[0], want)
	}
}

func TestOccurrencesDailyPastDueSameDayIncluded(t *testing.T) {
	t.Parallel()
	// Daily slots earlier today are still returned; catch-up firing depends on it.
	e := dailyEntry()
	now := at(2024, 6, 15, 14, 0)
	got := e.Occurrences(now, now)
	if len(got) != 1 || !got[0].Equal(at(2024, 6, 15, 9, 0)) {
		t.Fatalf("occurrences = %v, want the 09:00 slot", got)
	}
}

func TestOccurrencesSuspended(t *testing.T) {
	t.Parallel()
	freqs := []Frequency{Hourly, Daily, Weekly, Monthly, OneTime}
	for _, f := range freqs {
		e := dailyEntry()
		e.Frequency = f
		e.Interval = 1
		e.Weekdays = WeekDays()
		e.MonthDays = []int{15}
		e.Suspended = true
		now := at(2024, 6, 15, 12, 0)
		if got := e.Occurrences(now, now); len(got) != 0 {
			t.Fatalf("%s: suspended entry produced %v", f, got)
		}
	}
}

func TestOccurrencesDateRangeBoundary(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	now := at(2024, 6, 15, 12, 0)

	before := e.StartsOn.AddDate(0, 0, -1)
	if got := e.Occurrences(before, now); len(got) != 0 {
		t.Fatalf("day before starts-on produced %v", got)
	}
	if got := e.Occurrences(e.StartsOn, at(2024, 1, 1, 12, 0)); len(got) != 1 {
		t.Fatalf("starts-on day produced %v, want one occurrence", got)
	}
	after := e.EndsOn.AddDate(0, 0, 1)
	if got := e.Occurrences(after, now); len(got) != 0 {
		t.Fatalf("day after ends-on produced %v", got)
	}
}

func TestOccurrencesDeterministic(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	e.Frequency = Monthly
	e.MonthDays = []int{20, 15, 1}
	now := at(2024, 6, 15, 12, 0)

	first := e.Occurrences(now, now)
	for i := 0; i < 10; i++ {
		again := e.Occurrences(now, now)
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed: %v vs %v", i, again, first)
		}
		for j := range again {
			if !again[j].Equal(first[j]) {
				t.Fatalf("run %d: order changed: %v vs %v", i, again, first)
			}
		}
	}
}

func TestOccurrencesWeekly(t *testing.T) {
	t.Parallel()
	// 2024-06-12 is a Wednesday.
	e := dailyEntry()
	e.Frequency = Weekly
	e.Weekdays = []WeekDay{Wednesday}
	e.At = TimeOfDay{Hour: 8}
	now := at(2024, 6, 12, 8, 30)

	got := e.Occurrences(now, now)
	if len(got) != 1 || !got[0].Equal(at(2024, 6, 12, 8, 0)) {
		t.Fatalf("occurrences = %v, want Wednesday 08:00", got)
	}

	// A Thursday yields nothing.
	thu := at(2024, 6, 13, 8, 30)
	if got := e.Occurrences(thu, thu); len(got) != 0 {
		t.Fatalf("Thursday produced %v", got)
	}
}

func TestOccurrencesWeeklyMappingExhaustive(t *testing.T) {
	t.Parallel()
	// 2024-06-10 is a Monday; walk one full week and check the 1..7 indexing
	// convention holds for every weekday value.
	for i, w := range WeekDays() {
		day := at(2024, 6, 10+i, 10, 0)
		if WeekDayOf(day) != w {
			t.Fatalf("WeekDayOf(%v) = %v, want %v", day, WeekDayOf(day), w)
		}
		e := dailyEntry()
		e.Frequency = Weekly
		e.Weekdays = []WeekDay{w}
		e.At = TimeOfDay{Hour: 9}
		got := e.Occurrences(day, day)
		if len(got) != 1 {
			t.Fatalf("%s: occurrences = %v, want one", w, got)
		}
	}
}

func TestOccurrencesWeeklyIntervalZeroUnconditional(t *testing.T) {
	t.Parallel()
	// Interval 0 bypasses both the month membership check and the clock gate.
	e := dailyEntry()
	e.Frequency = Weekly
	e.Weekdays = []WeekDay{Wednesday}
	e.Interval = 0
	e.At = TimeOfDay{Hour: 23}
	now := at(2024, 6, 12, 8, 0)
	if got := e.Occurrences(now, now); len(got) != 1 {
		t.Fatalf("occurrences = %v, want one despite future clock time", got)
	}
}

func TestOccurrencesMonthly(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	e.Frequency = Monthly
	e.MonthDays = []int{15}
	e.At = TimeOfDay{Hour: 7}

	on15 := at(2024, 6, 15, 7, 10)
	if got := e.Occurrences(on15, on15); len(got) != 1 || !got[0].Equal(at(2024, 6, 15, 7, 0)) {
		t.Fatalf("15th produced %v, want one 07:00 occurrence", got)
	}

	on16 := at(2024, 6, 16, 7, 10)
	if got := e.Occurrences(on16, on16); len(got) != 0 {
		t.Fatalf("16th produced %v", got)
	}
}

func TestOccurrencesMonthlyDay31NeverMatchesShortMonth(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	e.Frequency = Monthly
	e.MonthDays = []int{31}
	now := at(2024, 2, 29, 12, 0)
	if got := e.Occurrences(now, now); len(got) != 0 {
		t.Fatalf("Feb 29 with day-31 set produced %v", got)
	}
}

func TestOccurrencesHourly(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	e.Frequency = Hourly
	e.Interval = 3
	e.At = TimeOfDay{Minute: 30}
	now := at(2024, 6, 15, 10, 0)

	got := e.Occurrences(now, now)
	wantHours := []int{10, 13, 16, 19, 22}
	if len(got) != len(wantHours) {
		t.Fatalf("occurrences = %v, want hours %v", got, wantHours)
	}
	for i, h := range wantHours {
		want := at(2024, 6, 15, h, 30)
		if !got[i].Equal(want) {
			t.Fatalf("occurrence[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestOccurrencesHourlyBadIntervalYieldsNothing(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	e.Frequency = Hourly
	e.Interval = 0
	now := at(2024, 6, 15, 10, 0)
	if got := e.Occurrences(now, now); len(got) != 0 {
		t.Fatalf("hourly interval 0 produced %v", got)
	}
}

func TestOccurrencesOneTime(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	e.Frequency = OneTime
	e.Interval = 0
	e.StartsOn = date(2024, 6, 15)
	e.EndsOn = date(2024, 6, 15)
	e.At = TimeOfDay{Hour: 9}

	now := at(2024, 6, 15, 9, 5)
	if got := e.Occurrences(now, now); len(got) != 1 || !got[0].Equal(at(2024, 6, 15, 9, 0)) {
		t.Fatalf("occurrences = %v, want the single 09:00 moment", got)
	}

	// Not yet due.
	early := at(2024, 6, 15, 8, 0)
	if got := e.Occurrences(early, early); len(got) != 0 {
		t.Fatalf("early evaluation produced %v", got)
	}
}

func TestOccurrencesMalformedEntries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(*Entry)
	}{
		{"weekly with empty weekday set", func(e *Entry) {
			e.Frequency = Weekly
			e.Weekdays = nil
		}},
		{"monthly with empty day set", func(e *Entry) {
			e.Frequency = Monthly
			e.MonthDays = nil
		}},
		{"inverted date range", func(e *Entry) {
			e.StartsOn = date(2024, 12, 31)
			e.EndsOn = date(2024, 1, 1)
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := dailyEntry()
			tt.mut(&e)
			now := at(2024, 6, 12, 12, 0)
			if got := e.Occurrences(now, now); len(got) != 0 {
				t.Fatalf("malformed entry produced %v", got)
			}
		})
	}
}
