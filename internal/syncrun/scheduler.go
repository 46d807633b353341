package syncrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers sync cycles on a cron schedule. Overlapping
// fires are absorbed by the Runner's single-flight guard, so a slow
// cycle is never stacked behind another.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *slog.Logger
}

// NewScheduler creates a scheduler driving runner. log may be nil.
func NewScheduler(runner *Runner, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		log:    log,
	}
}

// Schedule registers a sync cycle on the given cron spec, e.g.
// "*/5 * * * *" for every five minutes. makeContext is called per
// fire so each cycle sees a fresh logical now.
func (s *Scheduler) Schedule(spec string, phases []Phase, makeContext func(now time.Time) *Context) error {
	_, err := s.cron.AddFunc(spec, func() {
		now := time.Now()
		s.log.Debug("scheduled sync fire", "at", now)
		s.runner.Run(context.Background(), phases, makeContext(now))
	})
	if err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	return nil
}

// Start begins firing scheduled cycles.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and aborts any in-flight cycle. The returned
// context is done when the cron runner has drained.
func (s *Scheduler) Stop() context.Context {
	s.runner.Abort()
	return s.cron.Stop()
}
