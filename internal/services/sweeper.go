package services

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepBatch = 500

// Sweeper periodically force-submits abandoned attempts. Lazy expiry already keeps results
// correct; sweeping only shortens how long an abandoned attempt stays in_progress.
type Sweeper struct {
	attempts AttemptService
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewSweeper(attempts AttemptService, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &Sweeper{
		attempts: attempts,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// RunOnce drains overdue attempts in batches and returns the total finalized.
func (sw *Sweeper) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := sw.attempts.ExpireOverdue(ctx, sw.batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < sw.batch {
			return total, nil
		}
	}
}

// Run blocks until ctx is done.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("Attempt sweeper started", "interval", sw.interval, "batch", sw.batch)
	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Attempt sweeper stopped")
			return
		case <-ticker.C:
			if _, err := sw.RunOnce(ctx); err != nil && ctx.Err() == nil {
				sw.logger.Error("Attempt sweep failed", "error", err)
			}
		}
	}
}
