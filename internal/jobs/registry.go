package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"vitalsched/internal/eventbus"
	"vitalsched/internal/schedule"
	logx "vitalsched/pkg/logx"
)

// Registry maps (subject, sequence) keys to outstanding jobs.
//
// Concurrency: the scheduler replaces/cancels from its pass while the
// dispatcher scans and runs due jobs on its own goroutine; every multi-step
// read-then-mutate sequence happens under mu. Callbacks run outside the
// lock so a slow callback never blocks registration.
type Registry struct {
	mu   sync.Mutex
	jobs map[schedule.Key]*job
	gen  uint64

	log logx.Logger
	bus eventbus.Bus
}

func NewRegistry(log logx.Logger, bus eventbus.Bus) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{jobs: map[schedule.Key]*job{}, log: log, bus: bus}
}

// Replace atomically cancels any job under key and installs spec. Calling it
// repeatedly with the same spec is harmless; the job's next run is simply
// recomputed from now.
func (r *Registry) Replace(key schedule.Key, spec Spec, now time.Time) {
	next := firstRun(spec, now)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.jobs[key] = &job{key: key, spec: spec, next: next, gen: r.gen}
	r.log.Debug("job registered",
		logx.String("key", key.String()),
		logx.String("job", spec.Label),
		logx.Time("next", next))
}

// Cancel removes the job under key; absent keys are a no-op.
func (r *Registry) Cancel(key schedule.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[key]; ok {
		delete(r.jobs, key)
		r.log.Debug("job cancelled", logx.String("key", key.String()))
	}
}

// CancelSubject removes every job belonging to a subject. Used when all of a
// subject's entries are deleted.
func (r *Registry) CancelSubject(subjectID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.jobs {
		if k.SubjectID == subjectID {
			delete(r.jobs, k)
			n++
		}
	}
	if n > 0 {
		r.log.Debug("subject jobs cancelled", logx.String("subject", subjectID), logx.Int("count", n))
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Idle reports whether nothing is registered. The dispatcher uses this to
// end its loop when there is no work left.
func (r *Registry) Idle() bool { return r.Len() == 0 }

// Snapshot returns read-only views of all jobs, ordered by next run then key.
func (r *Registry) Snapshot() []JobView {
	r.mu.Lock()
	out := make([]JobView, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, viewOf(j))
	}
	r.mu.Unlock()
	sortViews(out)
	return out
}

// Due returns views of jobs whose next run is at or before now, in ascending
// next-run order; ties break by (subject, sequence) for deterministic tests.
func (r *Registry) Due(now time.Time) []JobView {
	r.mu.Lock()
	out := make([]JobView, 0, len(r.jobs))
	for _, j := range r.jobs {
		if !j.next.After(now) {
			out = append(out, viewOf(j))
		}
	}
	r.mu.Unlock()
	sortViews(out)
	return out
}

// RunDue fires every due job's callback and returns how many ran.
//
// Lifecycle rules:
//   - one-shot jobs are removed right after their callback returns, success
//     or not, so a failing one-shot can never re-fire;
//   - recurring jobs advance to their next stride regardless of callback
//     outcome; errors and panics are logged and published, never propagated;
//   - jobs with a MonthDays gate advance without running the callback on
//     non-matching days.
func (r *Registry) RunDue(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	due := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if !j.next.After(now) {
			due = append(due, j)
		}
	}
	r.mu.Unlock()

	sort.Slice(due, func(i, k int) bool {
		if !due[i].next.Equal(due[k].next) {
			return due[i].next.Before(due[k].next)
		}
		if due[i].key.SubjectID != due[k].key.SubjectID {
			return due[i].key.SubjectID < due[k].key.SubjectID
		}
		return due[i].key.SeqNbr < due[k].key.SeqNbr
	})

	ran := 0
	for _, j := range due {
		if len(j.spec.MonthDays) > 0 && !containsDay(j.spec.MonthDays, now.Day()) {
			r.finishRun(j, now, false)
			continue
		}
		err := r.invoke(ctx, j)
		ran++
		if err != nil {
			r.log.Warn("job callback failed",
				logx.String("key", j.key.String()),
				logx.String("job", j.spec.Label),
				logx.Err(err))
			r.publish("job.failed", j, now, err)
		} else {
			r.log.Info("job fired",
				logx.String("key", j.key.String()),
				logx.String("job", j.spec.Label))
			r.publish("job.fired", j, now, nil)
		}
		r.finishRun(j, now, j.spec.CancelOnFirstRun)
	}
	return ran
}

func (r *Registry) invoke(ctx context.Context, j *job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			r.log.Error("job callback panicked",
				logx.String("key", j.key.String()),
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	if j.spec.Run == nil {
		return nil
	}
	return j.spec.Run(ctx)
}

// finishRun advances or removes the job after a fire attempt, unless a
// concurrent Replace installed a newer job under the same key.
func (r *Registry) finishRun(j *job, now time.Time, remove bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.jobs[j.key]
	if !ok || cur.gen != j.gen {
		return
	}
	if remove {
		delete(r.jobs, j.key)
		return
	}
	cur.next = nextRun(cur.spec, cur.next, now)
}

func (r *Registry) publish(typ string, j *job, now time.Time, err error) {
	if r.bus == nil {
		return
	}
	ev := JobEvent{Key: j.key.String(), Label: j.spec.Label, At: now}
	if err != nil {
		ev.Error = err.Error()
	}
	r.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
}

// firstRun picks the initial trigger moment for a spec registered at now:
// the next moment matching the spec's clock time (and weekday, for weekly
// strides), or the fixed moment for one-shots.
func firstRun(spec Spec, now time.Time) time.Time {
	if spec.CancelOnFirstRun && !spec.FireAt.IsZero() {
		return spec.FireAt
	}
	every := spec.Every
	if every < 1 {
		every = 1
	}
	switch spec.Unit {
	case UnitHours:
		cand := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), spec.At.Minute, 0, 0, now.Location())
		if !cand.After(now) {
			cand = cand.Add(time.Duration(every) * time.Hour)
		}
		return cand
	case UnitWeeks:
		cand := spec.At.On(now)
		for i := 0; i < 7; i++ {
			if schedule.WeekDayOf(cand) == spec.Weekday && cand.After(now) {
				return cand
			}
			cand = cand.AddDate(0, 0, 1)
		}
		return cand
	default: // UnitDays
		cand := spec.At.On(now)
		if !cand.After(now) {
			cand = cand.AddDate(0, 0, every)
		}
		return cand
	}
}

// nextRun advances a recurring job past now by whole strides.
func nextRun(spec Spec, prev, now time.Time) time.Time {
	every := spec.Every
	if every < 1 {
		every = 1
	}
	next := prev
	for !next.After(now) {
		switch spec.Unit {
		case UnitHours:
			next = next.Add(time.Duration(every) * time.Hour)
		case UnitWeeks:
			next = next.AddDate(0, 0, 7*every)
		default:
			next = next.AddDate(0, 0, every)
		}
	}
	return next
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func viewOf(j *job) JobView {
	return JobView{
		Key:     j.key,
		Label:   j.spec.Label,
		Unit:    j.spec.Unit,
		Every:   j.spec.Every,
		At:      j.spec.At,
		Weekday: j.spec.Weekday,
		OneShot: j.spec.CancelOnFirstRun,
		NextRun: j.next,
	}
}

func sortViews(views []JobView) {
	sort.Slice(views, func(i, k int) bool {
		if !views[i].NextRun.Equal(views[k].NextRun) {
			return views[i].NextRun.Before(views[k].NextRun)
		}
		if views[i].Key.SubjectID != views[k].Key.SubjectID {
			return views[i].Key.SubjectID < views[k].Key.SubjectID
		}
		return views[i].Key.SeqNbr < views[k].Key.SeqNbr
	})
}
