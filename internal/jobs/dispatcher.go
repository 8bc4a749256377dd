package jobs

import (
	"context"
	"sync"
	"time"

	logx "vitalsched/pkg/logx"
)

const DefaultPollInterval = 2 * time.Minute

// Dispatcher is the background loop that fires due jobs. It has its own
// lifecycle, independent of the scheduler that fills the registry.
//
// The loop ends on its own when the registry goes idle; a registry that
// gains jobs afterwards needs a fresh dispatcher. Callers watch Done() for
// that.
type Dispatcher struct {
	reg      *Registry
	interval time.Duration
	log      logx.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func NewDispatcher(reg *Registry, interval time.Duration, log logx.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		reg:      reg,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. Subsequent calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.loop(ctx)
	})
}

// Stop requests a cooperative shutdown. The loop exits at the top of its
// next iteration, within one poll interval; an in-flight callback is allowed
// to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// Done is closed when the loop has exited, whether via Stop, context
// cancellation, or idle registry.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	d.log.Info("dispatcher started", logx.Duration("interval", d.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-d.stopCh:
			d.log.Info("dispatcher stopped")
			return
		case <-ctx.Done():
			d.log.Info("dispatcher stopped", logx.Err(ctx.Err()))
			return
		default:
		}

		if d.reg.Idle() {
			d.log.Info("no pending jobs, dispatcher ending")
			return
		}

		if n := d.reg.RunDue(ctx, time.Now()); n > 0 {
			d.log.Debug("due jobs ran", logx.Int("count", n))
		}

		timer.Reset(d.interval)
		select {
		case <-d.stopCh:
			if !timer.Stop() {
				<-timer.C
			}
			d.log.Info("dispatcher stopped")
			return
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			d.log.Info("dispatcher stopped", logx.Err(ctx.Err()))
			return
		case <-timer.C:
		}
	}
}
