package scheduler

import (
	"fmt"
	"time"

	"vitalsched/internal/jobs"
	"vitalsched/internal/schedule"
)

// Decision is one entry's outcome for a pass: the job spec to install under
// the entry's key (cancel-and-replace), and whether the pass should write
// back last-triggered right away. The spec carries no callback; the
// scheduler attaches one when registering.
type Decision struct {
	Entry               schedule.Entry
	FireAt              time.Time
	Spec                jobs.Spec
	UpdateLastTriggered bool
}

// Evaluate inspects one subject's entries at now and returns the jobs to
// (re)register. At most one decision per entry per pass, so write
// amplification on last-triggered stays bounded.
//
// Once-per-day duplicate suppression for Daily and OneTime entries happens
// here via LastTriggered; Hourly, Weekly and Monthly entries always
// re-register (replace is idempotent in effect). Past-due moments earlier
// today are included; see schedule.Entry.Occurrences.
func Evaluate(now time.Time, entries []schedule.Entry) []Decision {
	var out []Decision
	for _, e := range entries {
		occs := e.Occurrences(now, now)
		if len(occs) == 0 {
			continue
		}
		fireAt := occs[0]

		var spec jobs.Spec
		update := false
		switch e.Frequency {
		case schedule.Hourly:
			spec = jobs.Spec{Unit: jobs.UnitHours, Every: e.Interval, At: e.At}
			update = true
		case schedule.Daily:
			if e.TriggeredOn(now) {
				continue
			}
			spec = jobs.Spec{Unit: jobs.UnitDays, Every: e.Interval, At: e.At}
			update = true
		case schedule.Weekly:
			spec = jobs.Spec{Unit: jobs.UnitWeeks, Every: e.Interval, Weekday: schedule.WeekDayOf(now), At: e.At}
			update = true
		case schedule.Monthly:
			// A daily job that re-checks day-of-month membership at fire time;
			// the entry's interval is not applied (long-standing behavior the
			// data model permits but the trigger path never enforced).
			spec = jobs.Spec{Unit: jobs.UnitDays, Every: 1, At: e.At, MonthDays: append([]int(nil), e.MonthDays...)}
			update = true
		case schedule.OneTime:
			if e.TriggeredOn(now) {
				continue
			}
			// Last-triggered is written back when the job actually runs, not
			// at registration; the job removes itself after its first run.
			spec = jobs.Spec{FireAt: fireAt, CancelOnFirstRun: true}
		default:
			continue
		}

		spec.Label = describeJob(e, fireAt)
		out = append(out, Decision{Entry: e, FireAt: fireAt, Spec: spec, UpdateLastTriggered: update})
	}
	return out
}

func describeJob(e schedule.Entry, fireAt time.Time) string {
	return fmt.Sprintf("%s %s interval %d at %s",
		e.Frequency, e.Metric.Label(), e.Interval, fireAt.Format("2006-01-02 15:04"))
}

func describeDecision(d Decision) JobDescription {
	unit := d.Spec.Unit.String()
	if d.Spec.CancelOnFirstRun {
		unit = "once"
	}
	return JobDescription{
		SubjectID: d.Entry.SubjectID,
		SeqNbr:    d.Entry.SeqNbr,
		Metric:    d.Entry.Metric.Label(),
		Interval:  d.Entry.Interval,
		Unit:      unit,
		At:        d.Entry.At,
		Label:     d.Spec.Label,
	}
}
