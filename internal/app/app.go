// Package app wires the services together: config, logging, store,
// scheduler, notifier. It owns startup order and shutdown order; the
// services themselves stay ignorant of each other's lifecycles.
package app

import (
	"context"
	"sync"

	"vitalsched/internal/config"
	"vitalsched/internal/eventbus"
	"vitalsched/internal/jobs"
	"vitalsched/internal/notifier"
	"vitalsched/internal/notifier/telegram"
	"vitalsched/internal/schedule"
	"vitalsched/internal/scheduler"
	"vitalsched/internal/store"
	logx "vitalsched/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger
	bus  eventbus.Bus

	db       *store.DB
	storeSvc *store.Service
	storeCli *store.Client

	registry *jobs.Registry
	sched    *scheduler.Service
	notif    *notifier.Service

	cfgCh chan *config.Config

	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	storeCfg, waitCeiling, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(storeCfg, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}
	storeSvc := store.NewService(db, log.With(logx.String("comp", "store")))
	storeCli := store.NewClient(storeSvc, waitCeiling, log.With(logx.String("comp", "store")))

	registry := jobs.NewRegistry(log.With(logx.String("comp", "jobs")), bus)

	schedCfg, err := mapSchedulerConfig(cfg, waitCeiling)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(schedCfg, storeCli, registry,
		log.With(logx.String("comp", "scheduler")), bus)

	sink, err := buildSink(cfg, log)
	if err != nil {
		return nil, err
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, sink, log.With(logx.String("comp", "notifier")), bus)

	a := &App{
		cfgm:     cfgm,
		logs:     logSvc,
		log:      log,
		bus:      bus,
		db:       db,
		storeSvc: storeSvc,
		storeCli: storeCli,
		registry: registry,
		sched:    sched,
		notif:    notif,
	}

	sched.SetRunEntryCallback(a.runEntry)
	sched.SetCompletionListener(a.onPassCompletion)
	return a, nil
}

// Store exposes the request/response client, e.g. for management tooling.
func (a *App) Store() *store.Client { return a.storeCli }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel

	a.storeSvc.Start(runCtx)
	a.notif.Start(runCtx)

	if a.sched.Enabled() {
		if err := a.sched.StartAuto(runCtx); err != nil {
			cancel()
			return err
		}
		// Initial pass so reminders exist before the first cron tick.
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.sched.RunPass(runCtx)
		}()
	} else {
		a.log.Info("scheduler disabled")
	}

	a.cfgCh = a.cfgm.Subscribe(1)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.reloadLoop(runCtx)
	}()

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.sched.Stop(ctx)
	a.notif.Stop(ctx)
	a.storeSvc.Stop(ctx)

	if a.runCancel != nil {
		a.runCancel()
	}
	a.cfgm.Unsubscribe(a.cfgCh)
	a.wg.Wait()

	err := a.db.Close()
	a.log.Info("stopped")
	_ = a.logs.Close()
	return err
}

// runEntry is the scheduler's job callback: a due entry becomes a reminder
// in the delivery pipeline.
func (a *App) runEntry(ctx context.Context, sub store.Subject, e schedule.Entry) error {
	return a.notif.Deliver(ctx, notifier.Reminder{Subject: sub, Entry: e})
}

func (a *App) onPassCompletion(c scheduler.Completion) {
	if c.Status == scheduler.StatusFailure {
		a.log.Error("scheduling pass failed", logx.Err(c.Err))
		return
	}
	a.log.Info("scheduling pass complete", logx.Int("jobs", len(c.Jobs)))
	for _, j := range c.Jobs {
		a.log.Debug("scheduled", logx.String("job", j.Label),
			logx.String("subject", j.SubjectID), logx.Int("seq", j.SeqNbr))
	}
}

// reloadLoop applies config edits that can take effect without a restart.
// Currently that is the logging section; other sections log a notice that a
// restart is needed.
func (a *App) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok {
				return
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging config applied; other sections apply on restart")
		}
	}
}

func buildSink(cfg *config.Config, log logx.Logger) (notifier.Sink, error) {
	if cfg.Telegram == nil {
		return notifier.NewLogSink(log.With(logx.String("comp", "notifier"))), nil
	}
	return telegram.New(telegram.Config{
		Token:  cfg.Telegram.Token,
		ChatID: cfg.Telegram.ChatID,
	}, log.With(logx.String("comp", "telegram")))
}
