package jobs

import (
	"context"
	"time"

	"vitalsched/internal/schedule"
)

// Unit is the recurrence stride unit of a registered job.
type Unit int

const (
	UnitHours Unit = iota + 1
	UnitDays
	UnitWeeks
)

func (u Unit) String() string {
	switch u {
	case UnitHours:
		return "hours"
	case UnitDays:
		return "days"
	case UnitWeeks:
		return "weeks"
	default:
		return "unit(?)"
	}
}

// Spec describes one registered job: either a recurring stride (Unit/Every)
// or a one-shot moment (FireAt with CancelOnFirstRun).
//
// MonthDays, when set, is re-checked at fire time: the job advances on every
// stride but the callback only runs on matching days of month. This is how
// monthly entries are represented (a daily job that gates on membership).
type Spec struct {
	Unit    Unit
	Every   int
	At      schedule.TimeOfDay // recurring: the trigger clock time (hourly jobs use Minute only)
	Weekday schedule.WeekDay   // weekly jobs: which day the stride lands on

	MonthDays []int

	FireAt           time.Time // one-shot only
	CancelOnFirstRun bool

	Label string
	Run   func(ctx context.Context) error
}

type job struct {
	key  schedule.Key
	spec Spec
	next time.Time

	// gen detects replace-during-callback: advancing or removing after a run
	// is skipped when the installed job is no longer the one that fired.
	gen uint64
}

// JobView is a read-only snapshot of a registered job, used for completion
// notifications and introspection.
type JobView struct {
	Key     schedule.Key
	Label   string
	Unit    Unit
	Every   int
	At      schedule.TimeOfDay
	Weekday schedule.WeekDay
	OneShot bool
	NextRun time.Time
}

// JobEvent is the bus payload for job.fired / job.failed events.
type JobEvent struct {
	Key   string
	Label string
	At    time.Time
	Error string
}
