package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitalsched/internal/schedule"
	logx "vitalsched/pkg/logx"
)

func key(subject string, seq int) schedule.Key {
	return schedule.Key{SubjectID: subject, SeqNbr: seq}
}

func dailySpec(at schedule.TimeOfDay, run func(ctx context.Context) error) Spec {
	return Spec{Unit: UnitDays, Every: 1, At: at, Label: "daily test job", Run: run}
}

func TestReplaceCancelsExisting(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)

	var firstRuns, secondRuns int
	r.Replace(key("anna", 1), dailySpec(schedule.TimeOfDay{Hour: 9}, func(ctx context.Context) error {
		firstRuns++
		return nil
	}), now)
	r.Replace(key("anna", 1), dailySpec(schedule.TimeOfDay{Hour: 9}, func(ctx context.Context) error {
		secondRuns++
		return nil
	}), now)

	if got := r.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
	r.RunDue(context.Background(), now.AddDate(0, 0, 1))
	if firstRuns != 0 || secondRuns != 1 {
		t.Fatalf("runs = %d/%d, want 0/1", firstRuns, secondRuns)
	}
}

func TestCancelAbsentKeyNoop(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	r.Cancel(key("nobody", 99))
	if !r.Idle() {
		t.Fatal("registry should stay idle")
	}
}

func TestCancelSubject(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)
	r.Replace(key("anna", 1), dailySpec(schedule.TimeOfDay{Hour: 9}, nil), now)
	r.Replace(key("anna", 2), dailySpec(schedule.TimeOfDay{Hour: 9}, nil), now)
	r.Replace(key("ben", 1), dailySpec(schedule.TimeOfDay{Hour: 9}, nil), now)

	if n := r.CancelSubject("anna"); n != 2 {
		t.Fatalf("CancelSubject = %d, want 2", n)
	}
	if got := r.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
}

func TestDueOrderingDeterministic(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	now := time.Date(2024, 6, 15, 8, 0, 0, 0, time.Local)

	// Same fire moment for all three; order must fall back to key order.
	at := schedule.TimeOfDay{Hour: 9}
	r.Replace(key("zoe", 1), dailySpec(at, nil), now)
	r.Replace(key("anna", 2), dailySpec(at, nil), now)
	r.Replace(key("anna", 1), dailySpec(at, nil), now)

	due := r.Due(now.Add(2 * time.Hour))
	if len(due) != 3 {
		t.Fatalf("Due returned %d jobs, want 3", len(due))
	}
	wantKeys := []schedule.Key{key("anna", 1), key("anna", 2), key("zoe", 1)}
	for i, w := range wantKeys {
		if due[i].Key != w {
			t.Fatalf("due[%d].Key = %v, want %v", i, due[i].Key, w)
		}
	}
}

func TestRunDueOneShotRemovedEvenOnError(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)

	calls := 0
	r.Replace(key("anna", 1), Spec{
		FireAt:           now.Add(-time.Hour),
		CancelOnFirstRun: true,
		Label:            "one-shot",
		Run: func(ctx context.Context) error {
			calls++
			return errors.New("collector unavailable")
		},
	}, now)

	if n := r.RunDue(context.Background(), now); n != 1 {
		t.Fatalf("RunDue = %d, want 1", n)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !r.Idle() {
		t.Fatal("failed one-shot left in registry; would re-fire forever")
	}
	// A second sweep must not fire it again.
	if n := r.RunDue(context.Background(), now.Add(time.Minute)); n != 0 {
		t.Fatalf("second RunDue = %d, want 0", n)
	}
}

func TestRunDueRecurringSurvivesErrorAndPanic(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)

	fails := 0
	r.Replace(key("anna", 1), dailySpec(schedule.TimeOfDay{Hour: 9}, func(ctx context.Context) error {
		fails++
		if fails == 1 {
			panic("boom")
		}
		return errors.New("still broken")
	}), now)

	day2 := now.AddDate(0, 0, 1)
	if n := r.RunDue(context.Background(), day2); n != 1 {
		t.Fatalf("RunDue = %d, want 1 (panic must be contained)", n)
	}
	day3 := now.AddDate(0, 0, 2)
	if n := r.RunDue(context.Background(), day3); n != 1 {
		t.Fatalf("RunDue after panic = %d, want 1 (job must stay scheduled)", n)
	}
	if fails != 2 {
		t.Fatalf("fails = %d, want 2", fails)
	}
}

func TestRunDueMonthDayGate(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	now := time.Date(2024, 6, 14, 6, 0, 0, 0, time.Local)

	runs := 0
	spec := dailySpec(schedule.TimeOfDay{Hour: 7}, func(ctx context.Context) error {
		runs++
		return nil
	})
	spec.MonthDays = []int{15}
	r.Replace(key("anna", 1), spec, now)

	// June 14th: due but gated out; job advances without firing.
	if n := r.RunDue(context.Background(), time.Date(2024, 6, 14, 8, 0, 0, 0, time.Local)); n != 0 {
		t.Fatalf("gated day ran %d jobs", n)
	}
	// June 15th: gate matches.
	if n := r.RunDue(context.Background(), time.Date(2024, 6, 15, 8, 0, 0, 0, time.Local)); n != 1 {
		t.Fatalf("matching day ran %d jobs, want 1", n)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
}

func TestFirstRun(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 12, 10, 5, 0, 0, time.Local) // Wednesday

	tests := []struct {
		name string
		spec Spec
		want time.Time
	}{
		{
			name: "hourly later this hour",
			spec: Spec{Unit: UnitHours, Every: 3, At: schedule.TimeOfDay{Minute: 30}},
			want: time.Date(2024, 6, 12, 10, 30, 0, 0, time.Local),
		},
		{
			name: "hourly minute already passed",
			spec: Spec{Unit: UnitHours, Every: 3, At: schedule.TimeOfDay{Minute: 0}},
			want: time.Date(2024, 6, 12, 13, 0, 0, 0, time.Local),
		},
		{
			name: "daily time already passed",
			spec: Spec{Unit: UnitDays, Every: 1, At: schedule.TimeOfDay{Hour: 9}},
			want: time.Date(2024, 6, 13, 9, 0, 0, 0, time.Local),
		},
		{
			name: "daily still ahead today",
			spec: Spec{Unit: UnitDays, Every: 2, At: schedule.TimeOfDay{Hour: 21}},
			want: time.Date(2024, 6, 12, 21, 0, 0, 0, time.Local),
		},
		{
			name: "weekly same day passed moves a week out",
			spec: Spec{Unit: UnitWeeks, Every: 1, Weekday: schedule.Wednesday, At: schedule.TimeOfDay{Hour: 8}},
			want: time.Date(2024, 6, 19, 8, 0, 0, 0, time.Local),
		},
		{
			name: "weekly upcoming day this week",
			spec: Spec{Unit: UnitWeeks, Every: 1, Weekday: schedule.Friday, At: schedule.TimeOfDay{Hour: 8}},
			want: time.Date(2024, 6, 14, 8, 0, 0, 0, time.Local),
		},
		{
			name: "one-shot keeps its fixed moment",
			spec: Spec{FireAt: time.Date(2024, 6, 12, 9, 0, 0, 0, time.Local), CancelOnFirstRun: true},
			want: time.Date(2024, 6, 12, 9, 0, 0, 0, time.Local),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := firstRun(tt.spec, now); !got.Equal(tt.want) {
				t.Fatalf("firstRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextRunAdvancesPastNow(t *testing.T) {
	t.Parallel()
	spec := Spec{Unit: UnitDays, Every: 1, At: schedule.TimeOfDay{Hour: 9}}
	prev := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	got := nextRun(spec, prev, now)
	want := time.Date(2024, 6, 16, 9, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("nextRun = %v, want %v", got, want)
	}
}
