package notifier

import (
	"context"
	"time"

	"vitalsched/internal/schedule"
	"vitalsched/internal/store"
)

// Reminder is one delivery: a subject is due to record a reading.
type Reminder struct {
	Subject store.Subject
	Entry   schedule.Entry
	At      time.Time
}

// Text renders the reminder message.
func (r Reminder) Text() string {
	name := r.Subject.Name
	if name == "" {
		name = r.Subject.ID
	}
	return name + ": time to record " + r.Entry.Metric.Label()
}

// Sink delivers rendered reminders to one channel (log line, Telegram chat).
type Sink interface {
	Name() string
	Send(ctx context.Context, r Reminder) error
}

// Config controls the delivery pipeline.
type Config struct {
	Enabled    bool
	Workers    int
	QueueSize  int
	RatePerSec int

	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

// ReminderEvent is the bus payload for reminder.* events.
type ReminderEvent struct {
	Key     string
	Subject string
	Metric  string
	Sink    string
	At      time.Time
	Error   string
}
