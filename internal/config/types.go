package config

// Config is the whole application configuration. Files may be YAML or JSON;
// both are decoded strictly, so typos and removed keys fail the load instead
// of being silently ignored.
//
// All duration fields are Go duration strings (e.g. "500ms", "10s", "2m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Notifier  NotifierConfig  `json:"notifier"`

	// Telegram is the optional delivery channel. When omitted, reminders go
	// to the application log.
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the SQLite store and its request/response worker.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`

	// WaitCeiling bounds one store round-trip; an expired wait fails the
	// scheduler pass that issued it. Default "2m".
	WaitCeiling string `json:"wait_ceiling,omitempty"`
}

// SchedulerConfig controls scheduling passes and the dispatcher.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// PassSpec is an optional cron expression that re-runs the scheduling
	// pass periodically (e.g. "5 0 * * *"). Empty means passes run only
	// once at startup.
	PassSpec string `json:"pass_spec,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	// DispatchInterval is the dispatcher poll interval. Default "2m".
	DispatchInterval string `json:"dispatch_interval,omitempty"`
}

// NotifierConfig controls the async reminder delivery pipeline.
type NotifierConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}
