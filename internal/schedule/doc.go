// Package schedule holds the recurring-reminder data model: subjects'
// schedule entries, their recurrence rules, and the pure trigger-occurrence
// computation. Everything here works in naive local time; the original
// application never carried timezones on entries and neither do we.
package schedule
