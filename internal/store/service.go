package store

import (
	"context"
	"sync"
	"time"

	logx "vitalsched/pkg/logx"
)

const requestQueueSize = 64

// Service is the store worker: a single goroutine owning all database
// access, fed by typed request messages. Replies go out on the per-request
// channel; a caller that stopped listening is skipped, never waited on.
type Service struct {
	db  *DB
	log logx.Logger

	reqCh chan Request

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func NewService(db *DB, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		db:     db,
		log:    log.With(logx.String("svc", "store")),
		reqCh:  make(chan Request, requestQueueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Requests is the channel clients send on. It is never closed; after Stop,
// sends still succeed until the buffer fills but nothing consumes them.
func (s *Service) Requests() chan<- Request { return s.reqCh }

func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.loop(ctx)
	})
}

// Stop ends the worker after the in-flight request finishes. Queued
// requests are abandoned; their senders time out at the wait ceiling.
func (s *Service) Stop(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)
	s.log.Info("store worker started")
	for {
		select {
		case <-s.stopCh:
			s.log.Info("store worker stopped")
			return
		case <-ctx.Done():
			s.log.Info("store worker stopped", logx.Err(ctx.Err()))
			return
		case req := <-s.reqCh:
			s.handle(ctx, req)
		}
	}
}

func (s *Service) handle(ctx context.Context, req Request) {
	start := time.Now()
	switch r := req.(type) {
	case SubjectsRequest:
		subjects, err := s.db.Subjects(ctx)
		reply(r.Reply, SubjectsResponse{Subjects: subjects, Err: err})
		s.observe("subjects", err, start)

	case PutSubjectRequest:
		err := s.db.PutSubject(ctx, r.Subject)
		reply(r.Reply, PutSubjectResponse{Err: err})
		s.observe("put subject", err, start)

	case EntriesRequest:
		entries, err := s.db.Entries(ctx, r.SubjectID)
		reply(r.Reply, EntriesResponse{SubjectID: r.SubjectID, Entries: entries, Err: err})
		s.observe("entries", err, start)

	case PutEntryRequest:
		e, err := s.db.PutEntry(ctx, r.Entry)
		reply(r.Reply, PutEntryResponse{Entry: e, Err: err})
		s.observe("put entry", err, start)

	case UpdateLastTriggeredRequest:
		if err := s.db.UpdateLastTriggered(ctx, r.Key, r.At); err != nil {
			s.log.Warn("last-triggered update failed",
				logx.String("key", r.Key.String()), logx.Err(err))
		}

	case DeleteEntriesRequest:
		entries, err := s.db.DeleteEntries(ctx, r.SubjectID, r.SeqNbr)
		reply(r.Reply, EntriesResponse{SubjectID: r.SubjectID, Entries: entries, Err: err})
		s.observe("delete entries", err, start)

	default:
		s.log.Warn("unknown store request dropped")
	}
}

func (s *Service) observe(op string, err error, start time.Time) {
	if err != nil {
		s.log.Error("store op failed", logx.String("op", op), logx.Err(err))
		return
	}
	s.log.Debug("store op", logx.String("op", op), logx.Duration("took", time.Since(start)))
}

// reply delivers without blocking; an unbuffered or abandoned channel just
// loses the response, the worker moves on.
func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}
