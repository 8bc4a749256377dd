// Package notifier delivers due reminders to a configured sink. The
// scheduler's job callbacks enqueue; a small worker pool sends, rate limited
// and with bounded retries, so a slow channel never backs up into the
// dispatcher.
package notifier
