package scheduler

import (
	"context"
	"sync"
	"time"

	"vitalsched/internal/eventbus"
	"vitalsched/internal/jobs"
	"vitalsched/internal/schedule"
	"vitalsched/internal/store"
	logx "vitalsched/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Service orchestrates scheduler passes. One Service owns one registry and
// at most one live dispatcher; there is deliberately no process-wide state.
type Service struct {
	cfg      Config
	log      logx.Logger
	bus      eventbus.Bus
	store    Store
	registry *jobs.Registry

	onCompletion CompletionListener
	runEntry     RunEntryFunc

	nowFn func() time.Time

	mu         sync.Mutex
	dispatcher *jobs.Dispatcher
	cron       *cron.Cron
}

func New(cfg Config, st Store, registry *jobs.Registry, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.DispatchInterval <= 0 {
		cfg.DispatchInterval = jobs.DefaultPollInterval
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		store:    st,
		registry: registry,
		nowFn:    time.Now,
	}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// SetCompletionListener installs the listener that receives the single
// completion signal per pass.
func (s *Service) SetCompletionListener(fn CompletionListener) { s.onCompletion = fn }

// SetRunEntryCallback installs the collaborator invoked when a job fires.
func (s *Service) SetRunEntryCallback(fn RunEntryFunc) { s.runEntry = fn }

// RunPass performs one scheduling pass: subjects → entries → evaluate →
// register → write back last-triggered → completion → ensure dispatcher.
//
// Exactly one completion is emitted per invocation. Retrieval failures
// (including the store wait ceiling) end the pass with a Failure completion;
// they never crash the service or touch a running dispatcher.
func (s *Service) RunPass(ctx context.Context) Completion {
	start := time.Now()
	now := s.nowFn()
	s.log.Info("scheduler pass started", logx.Time("now", now))

	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		s.log.Error("subject retrieval failed, pass abandoned", logx.Err(err))
		return s.complete(Completion{Status: StatusFailure, Err: err})
	}

	var descs []JobDescription
	for _, sub := range subjects {
		entries, err := s.store.Entries(ctx, sub.ID)
		if err != nil {
			s.log.Error("entry retrieval failed, pass abandoned",
				logx.String("subject", sub.ID), logx.Err(err))
			return s.complete(Completion{Status: StatusFailure, Jobs: descs, Err: err})
		}
		if len(entries) == 0 {
			continue
		}
		s.log.Debug("entries received",
			logx.String("subject", sub.ID), logx.Int("count", len(entries)))

		for _, d := range Evaluate(now, entries) {
			spec := d.Spec
			spec.Run = s.entryCallback(sub, d.Entry)
			s.registry.Replace(d.Entry.Key(), spec, now)
			s.log.Info("job scheduled",
				logx.String("key", d.Entry.Key().String()),
				logx.String("job", spec.Label))
			if d.UpdateLastTriggered {
				s.store.UpdateLastTriggered(d.Entry.Key(), now)
			}
			descs = append(descs, describeDecision(d))
		}
	}

	comp := s.complete(Completion{Status: StatusSuccess, Jobs: descs})
	s.ensureDispatcher(ctx)
	s.log.Info("scheduler pass finished",
		logx.Int("jobs", len(descs)), logx.Duration("took", time.Since(start)))
	return comp
}

// entryCallback builds the job callback for one entry: hand the fired
// reminder to the collaborator, then write back last-triggered so later
// passes see the fire (this is what retires one-shot entries).
func (s *Service) entryCallback(sub store.Subject, e schedule.Entry) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var err error
		if s.runEntry != nil {
			err = s.runEntry(ctx, sub, e)
		}
		s.store.UpdateLastTriggered(e.Key(), s.nowFn())
		return err
	}
}

func (s *Service) complete(c Completion) Completion {
	if s.onCompletion != nil {
		s.onCompletion(c)
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: "pass.completed", Data: c})
	}
	return c
}

// ensureDispatcher starts a dispatcher when jobs exist and none is running.
// A dispatcher that ended (idle registry) is replaced on the next pass that
// registers work; that restart obligation sits here, with the scheduler.
func (s *Service) ensureDispatcher(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry.Idle() {
		s.log.Info("no jobs scheduled, dispatcher not started")
		return
	}
	if s.dispatcher != nil {
		select {
		case <-s.dispatcher.Done():
			// fell idle earlier; start a fresh one below
		default:
			return
		}
	}
	s.dispatcher = jobs.NewDispatcher(s.registry, s.cfg.DispatchInterval, s.log)
	s.dispatcher.Start(ctx)
}

// DeleteEntry removes one entry (or all of a subject's entries when seqNbr
// is 0) from the store and cancels any registered jobs for the affected
// keys. The returned list is the subject's remaining entries.
func (s *Service) DeleteEntry(ctx context.Context, subjectID string, seqNbr int) ([]schedule.Entry, error) {
	if seqNbr == 0 {
		remaining, err := s.store.DeleteAllEntries(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		s.registry.CancelSubject(subjectID)
		return remaining, nil
	}
	remaining, err := s.store.DeleteEntry(ctx, subjectID, seqNbr)
	if err != nil {
		return nil, err
	}
	s.registry.Cancel(schedule.Key{SubjectID: subjectID, SeqNbr: seqNbr})
	return remaining, nil
}

// Stop shuts down the auto-pass cron and the current dispatcher. In-flight
// callbacks finish; a running pass is allowed to complete.
func (s *Service) Stop(ctx context.Context) {
	s.StopAuto(ctx)

	s.mu.Lock()
	d := s.dispatcher
	s.dispatcher = nil
	s.mu.Unlock()

	if d != nil {
		d.Stop()
		select {
		case <-d.Done():
		case <-ctx.Done():
			// best-effort
		}
	}
	s.log.Info("scheduler stopped")
}
