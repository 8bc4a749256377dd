package scheduler

import (
	"context"
	"time"

	"vitalsched/internal/schedule"
	"vitalsched/internal/store"
)

// Config controls the scheduler service.
type Config struct {
	Enabled bool

	// PassSpec is an optional cron expression (scheduler timezone) that
	// re-runs the pass periodically. Empty means passes run only when
	// explicitly invoked.
	PassSpec string
	Timezone string // IANA TZ, e.g. "Europe/Amsterdam"

	// DispatchInterval is the dispatcher poll interval.
	DispatchInterval time.Duration

	// WaitCeiling bounds each store round-trip; an expired wait fails the
	// whole pass with a Failure completion.
	WaitCeiling time.Duration
}

// Store is the persistence collaborator as seen by the scheduler. All calls
// are bounded request/response round-trips except UpdateLastTriggered,
// which is fire-and-forget.
type Store interface {
	Subjects(ctx context.Context) ([]store.Subject, error)
	Entries(ctx context.Context, subjectID string) ([]schedule.Entry, error)
	UpdateLastTriggered(key schedule.Key, at time.Time)
	DeleteEntry(ctx context.Context, subjectID string, seqNbr int) ([]schedule.Entry, error)
	DeleteAllEntries(ctx context.Context, subjectID string) ([]schedule.Entry, error)
}

// RunEntryFunc is invoked when a registered job fires: the collaborator
// (notifier pipeline, collection UI, ...) presents the reminder and
// eventually records the reading.
type RunEntryFunc func(ctx context.Context, subject store.Subject, entry schedule.Entry) error

type Status int

const (
	StatusSuccess Status = iota + 1
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "status(?)"
	}
}

// JobDescription is the human-displayable summary of one registered job,
// carried on the completion signal.
type JobDescription struct {
	SubjectID string
	SeqNbr    int
	Metric    string
	Interval  int
	Unit      string
	At        schedule.TimeOfDay
	Label     string
}

// Completion is emitted exactly once per pass invocation, success or
// failure; callers must never be left waiting.
type Completion struct {
	Status Status
	Jobs   []JobDescription
	Err    error
}

// CompletionListener receives the per-pass completion signal.
type CompletionListener func(Completion)
