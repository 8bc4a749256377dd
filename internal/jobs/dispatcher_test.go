package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"vitalsched/internal/schedule"
	logx "vitalsched/pkg/logx"
)

func waitClosed(t *testing.T, ch <-chan struct{}, within time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(within):
		t.Fatalf("%s did not finish within %v", what, within)
	}
}

func TestDispatcherIdleExit(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	d := NewDispatcher(r, 10*time.Millisecond, logx.Nop())
	d.Start(context.Background())
	waitClosed(t, d.Done(), time.Second, "idle dispatcher")
}

func TestDispatcherStopWithinInterval(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	// A far-future job keeps the registry non-idle.
	r.Replace(key("anna", 1), dailySpec(schedule.TimeOfDay{Hour: 23}, nil), time.Now())

	d := NewDispatcher(r, 20*time.Millisecond, logx.Nop())
	d.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	d.Stop()
	waitClosed(t, d.Done(), time.Second, "stopped dispatcher")
}

func TestDispatcherFiresDueJob(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	var fired atomic.Int32
	r.Replace(key("anna", 1), Spec{
		FireAt:           time.Now().Add(-time.Minute),
		CancelOnFirstRun: true,
		Label:            "past-due one-shot",
		Run: func(ctx context.Context) error {
			fired.Add(1)
			return nil
		},
	}, time.Now())

	d := NewDispatcher(r, 10*time.Millisecond, logx.Nop())
	d.Start(context.Background())
	// One-shot fires, registry goes idle, loop ends by itself.
	waitClosed(t, d.Done(), time.Second, "dispatcher")
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestDispatcherContextCancel(t *testing.T) {
	t.Parallel()
	r := NewRegistry(logx.Nop(), nil)
	r.Replace(key("anna", 1), dailySpec(schedule.TimeOfDay{Hour: 23}, nil), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(r, 20*time.Millisecond, logx.Nop())
	d.Start(ctx)
	cancel()
	waitClosed(t, d.Done(), time.Second, "cancelled dispatcher")
}
