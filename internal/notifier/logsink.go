package notifier

import (
	"context"

	logx "vitalsched/pkg/logx"
)

// LogSink writes reminders to the application log. It is the default sink
// when no delivery channel is configured, so reminders are never silently
// discarded.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, r Reminder) error {
	s.log.Info("reminder",
		logx.String("key", r.Entry.Key().String()),
		logx.String("text", r.Text()))
	return nil
}
