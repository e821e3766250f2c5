package usecase

import (
	"context"
	"errors"
	"time"

	"PricePulse/internal/domain/models"
	applogger "PricePulse/pkg/logger"
)

// Runner is anything that performs one detection pass.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (models.RunSummary, error)
}

// Scheduler triggers a detection run every interval until its context ends.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	logger     *applogger.Logger
}

func NewScheduler(runner Runner, interval time.Duration, runOnStart bool, logger *applogger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Scheduler{runner: runner, interval: interval, runOnStart: runOnStart, logger: logger}
}

// Start blocks until ctx is cancelled. Failed runs are logged and the
// schedule continues.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started",
		applogger.Duration("interval_ms", s.interval),
		applogger.Bool("run_on_start", s.runOnStart))

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.runner.Run(ctx, RunOptions{})
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("scheduled run skipped, another run holds the lock")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error("scheduled run failed", applogger.Error(err))
	}
}
