// Package jobs holds the in-process job table and the dispatcher that fires
// due jobs. The registry replaces the original third-party scheduling
// library's process-wide state: it is an explicit object owned by whoever
// created it, guarded by a mutex, and shared between exactly one scheduler
// (writer) and one dispatcher (reader/runner).
package jobs
