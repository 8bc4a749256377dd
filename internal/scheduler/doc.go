// Package scheduler turns persisted schedule entries into registered jobs.
//
// A pass retrieves all subjects and their entries from the store, evaluates
// which entries are due today, replaces the corresponding jobs in the
// registry, writes back last-triggered bookkeeping, and emits exactly one
// completion signal. The dispatcher (package jobs) fires the registered jobs
// on its own loop; the scheduler only computes and registers.
package scheduler
