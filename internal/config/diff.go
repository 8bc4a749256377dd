package config

import (
	"reflect"
	"sort"
	"strings"

	logx "vitalsched/pkg/logx"
)

// SummarizeChange returns the changed section names plus safe structured
// attrs for logging. Secrets (the Telegram token) are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.wait_ceiling", strings.TrimSpace(newCfg.Storage.WaitCeiling)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.pass_spec", strings.TrimSpace(newCfg.Scheduler.PassSpec)),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", newCfg.Notifier.Enabled),
			logx.Int("notifier.workers", newCfg.Notifier.Workers),
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
		)
	}

	// Telegram: compare presence and chat, flag token changes without logging
	// the value.
	oTG, nTG := oldCfg.Telegram, newCfg.Telegram
	tokenChanged := (oTG == nil) != (nTG == nil) ||
		(oTG != nil && nTG != nil && oTG.Token != nTG.Token)
	chatChanged := (oTG == nil) != (nTG == nil) ||
		(oTG != nil && nTG != nil && oTG.ChatID != nTG.ChatID)
	if tokenChanged || chatChanged {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.present", nTG != nil),
			logx.Bool("telegram.token_changed", tokenChanged),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
