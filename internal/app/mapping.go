package app

import (
	"errors"
	"strings"
	"time"

	"vitalsched/internal/config"
	"vitalsched/internal/jobs"
	"vitalsched/internal/notifier"
	"vitalsched/internal/scheduler"
	"vitalsched/internal/store"
)

// Config sections carry durations as strings; these helpers resolve them to
// the typed service configs, with defaults where the section is silent.

func mapStorageConfig(cfg *config.Config) (store.Config, time.Duration, error) {
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		return store.Config{}, 0, errors.New("storage.path is required")
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return store.Config{}, 0, err
	}
	ceiling, err := config.ParseDurationOrDefault("storage.wait_ceiling",
		cfg.Storage.WaitCeiling, store.DefaultWaitCeiling)
	if err != nil {
		return store.Config{}, 0, err
	}
	return store.Config{Path: cfg.Storage.Path, BusyTimeout: busy}, ceiling, nil
}

func mapSchedulerConfig(cfg *config.Config, waitCeiling time.Duration) (scheduler.Config, error) {
	interval, err := config.ParseDurationOrDefault("scheduler.dispatch_interval",
		cfg.Scheduler.DispatchInterval, jobs.DefaultPollInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:          cfg.Scheduler.Enabled,
		PassSpec:         cfg.Scheduler.PassSpec,
		Timezone:         cfg.Scheduler.Timezone,
		DispatchInterval: interval,
		WaitCeiling:      waitCeiling,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	base, err := config.ParseDurationField("notifier.retry_base", cfg.Notifier.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:       cfg.Notifier.Enabled,
		Workers:       cfg.Notifier.Workers,
		QueueSize:     cfg.Notifier.QueueSize,
		RatePerSec:    cfg.Notifier.RatePerSec,
		RetryMax:      cfg.Notifier.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}
