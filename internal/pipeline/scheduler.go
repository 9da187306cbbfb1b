package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Refresher rebuilds the served table.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler calls Refresh on a fixed interval until its context ends.
// Failures are logged and the loop keeps going.
type Scheduler struct {
	target   Refresher
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. A non-positive interval disables it.
func NewScheduler(target Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		target:   target,
		interval: interval,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Run blocks until ctx is cancelled. It does not refresh immediately; the
// caller performs the initial load.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("periodic refresh disabled")
		<-ctx.Done()
		return nil
	}

	s.logger.Info("periodic refresh started", slog.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("periodic refresh stopped")
			return nil
		case <-ticker.C:
			if err := s.target.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
