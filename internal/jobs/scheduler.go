// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"guild-ledger/internal/config"
)

type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

type Sweeper interface {
	Sweep() int
}

// SweepFunc adapts a plain function to Sweeper.
type SweepFunc func() int

func (f SweepFunc) Sweep() int { return f() }

type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	pruner   Pruner
	sweepers map[string]Sweeper
}

// NewScheduler registers the retention prune and every sweeper on the
// configured schedules. An invalid schedule is reported here rather than
// at Start.
func NewScheduler(ctx context.Context, cfg config.JobsConfig, pruner Pruner, sweepers map[string]Sweeper, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		logger:   logger,
		pruner:   pruner,
		sweepers: sweepers,
	}
	if pruner != nil {
		if _, err := s.cron.AddFunc(cfg.PruneSchedule, func() { s.prune(ctx) }); err != nil {
			return nil, fmt.Errorf("prune schedule %q: %w", cfg.PruneSchedule, err)
		}
	}
	if len(sweepers) > 0 {
		if _, err := s.cron.AddFunc(cfg.SweepSchedule, s.sweep); err != nil {
			return nil, fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) prune(ctx context.Context) {
	removed, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("transaction prune failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("transactions pruned", zap.Int64("removed", removed))
	}
}

func (s *Scheduler) sweep() {
	for name, sweeper := range s.sweepers {
		if removed := sweeper.Sweep(); removed > 0 {
			s.logger.Debug("swept", zap.String("cache", name), zap.Int("removed", removed))
		}
	}
}
