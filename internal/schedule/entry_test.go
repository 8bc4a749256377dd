package schedule

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	base := dailyEntry()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	tests := []struct {
		name string
		mut  func(*Entry)
	}{
		{"missing subject", func(e *Entry) { e.SubjectID = " " }},
		{"zero sequence", func(e *Entry) { e.SeqNbr = 0 }},
		{"bad metric", func(e *Entry) { e.Metric = 99 }},
		{"bad frequency", func(e *Entry) { e.Frequency = 0 }},
		{"negative interval", func(e *Entry) { e.Interval = -1 }},
		{"daily without interval", func(e *Entry) { e.Interval = 0 }},
		{"inverted range", func(e *Entry) { e.StartsOn, e.EndsOn = e.EndsOn, e.StartsOn }},
		{"weekly without weekdays", func(e *Entry) { e.Frequency = Weekly }},
		{"monthly without days", func(e *Entry) { e.Frequency = Monthly }},
		{"day of month out of range", func(e *Entry) {
			e.Frequency = Monthly
			e.MonthDays = []int{0, 15}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := dailyEntry()
			tt.mut(&e)
			if err := e.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWeekDayRoundTrip(t *testing.T) {
	t.Parallel()
	for _, w := range WeekDays() {
		got, err := ParseWeekDay(w.String())
		if err != nil {
			t.Fatalf("ParseWeekDay(%q) error: %v", w.String(), err)
		}
		if got != w {
			t.Fatalf("ParseWeekDay(%q) = %v, want %v", w.String(), got, w)
		}
	}
	if _, err := ParseWeekDay("Freitag"); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}

func TestWeekDaySetEncoding(t *testing.T) {
	t.Parallel()
	in := []WeekDay{Friday, Monday, Wednesday}
	enc := FormatWeekDaySet(in)
	if enc != "Monday,Wednesday,Friday" {
		t.Fatalf("FormatWeekDaySet = %q", enc)
	}
	out, err := ParseWeekDaySet(enc)
	if err != nil {
		t.Fatalf("ParseWeekDaySet error: %v", err)
	}
	if len(out) != 3 || out[0] != Monday || out[1] != Wednesday || out[2] != Friday {
		t.Fatalf("ParseWeekDaySet = %v", out)
	}

	if got, err := ParseWeekDaySet(""); err != nil || got != nil {
		t.Fatalf("empty set: %v, %v", got, err)
	}
}

func TestMonthDaySetEncoding(t *testing.T) {
	t.Parallel()
	enc := FormatMonthDaySet([]int{28, 1, 15})
	if enc != "1,15,28" {
		t.Fatalf("FormatMonthDaySet = %q", enc)
	}
	out, err := ParseMonthDaySet(enc)
	if err != nil {
		t.Fatalf("ParseMonthDaySet error: %v", err)
	}
	if len(out) != 3 || out[0] != 1 || out[1] != 15 || out[2] != 28 {
		t.Fatalf("ParseMonthDaySet = %v", out)
	}
	if _, err := ParseMonthDaySet("1,x"); err == nil {
		t.Fatal("expected error for junk day")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	got, err := ParseTimeOfDay("23:15")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if got.Hour != 23 || got.Minute != 15 {
		t.Fatalf("unexpected result: %v", got)
	}

	for _, bad := range []string{"24:00", "09:60", "0900", ""} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTriggeredOn(t *testing.T) {
	t.Parallel()
	e := dailyEntry()
	if e.TriggeredOn(date(2024, 6, 15)) {
		t.Fatal("nil last-triggered reported as triggered")
	}
	lt := at(2024, 6, 15, 9, 5)
	e.LastTriggered = &lt
	if !e.TriggeredOn(at(2024, 6, 15, 23, 0)) {
		t.Fatal("same-day trigger not detected")
	}
	if e.TriggeredOn(date(2024, 6, 16)) {
		t.Fatal("next day wrongly reported as triggered")
	}
}

func TestMetricKindRoundTrip(t *testing.T) {
	t.Parallel()
	for _, m := range MetricKinds() {
		got, err := ParseMetricKind(m.Name())
		if err != nil {
			t.Fatalf("ParseMetricKind(%q) error: %v", m.Name(), err)
		}
		if got != m {
			t.Fatalf("ParseMetricKind(%q) = %v, want %v", m.Name(), got, m)
		}
	}
	if _, err := ParseMetricKind("STEPS"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestDateHelpers(t *testing.T) {
	t.Parallel()
	a := time.Date(2024, 6, 15, 23, 59, 0, 0, time.Local)
	b := time.Date(2024, 6, 15, 0, 1, 0, 0, time.Local)
	if !SameDate(a, b) {
		t.Fatal("SameDate failed for same calendar date")
	}
	if SameDate(a, a.Add(2*time.Minute)) {
		t.Fatal("SameDate crossed midnight")
	}
	if got := DateOf(a); got.Hour() != 0 || got.Day() != 15 {
		t.Fatalf("DateOf = %v", got)
	}
}
