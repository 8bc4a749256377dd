package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "vitalsched/pkg/logx"
)

// StartAuto arranges periodic re-invocation of the pass on the configured
// cron spec. A no-op when no spec is configured (passes then run only on
// explicit request, matching the original operator-driven behavior).
func (s *Service) StartAuto(ctx context.Context) error {
	spec := strings.TrimSpace(s.cfg.PassSpec)
	if spec == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	loc := s.loadLocation()
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.RunPass(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info("auto pass scheduled", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) StopAuto(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
}

func (s *Service) loadLocation() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
