package jobs

import (
	"context"
	"time"

	"github.com/streamdex/streamdex/internal/catalog"
	xlog "github.com/streamdex/streamdex/internal/log"
)

// Scheduler periodically refreshes all configured providers. Provider edits
// and manual refreshes go through the same runner, so overlapping triggers
// for one provider still collapse into a single run.
type Scheduler struct {
	runner    *Runner
	interval  time.Duration
	providers func() []*catalog.Provider
}

// NewScheduler returns a scheduler calling providers() before every pass so
// configuration edits take effect without a restart.
func NewScheduler(runner *Runner, interval time.Duration, providers func() []*catalog.Provider) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, providers: providers}
}

// Run refreshes everything once immediately, then on every tick until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger := xlog.WithComponent("scheduler")
	logger.Info().
		Str("event", "scheduler.started").
		Dur("interval", s.interval).
		Msg("refresh scheduler started")

	s.runner.RefreshAll(ctx, s.providers())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("event", "scheduler.stopped").Msg("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runner.RefreshAll(ctx, s.providers())
		}
	}
}
