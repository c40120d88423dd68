// Package scheduler triggers the price recompute batch on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pauljones0/greenshelf/internal/models"
)

// Runner is the batch the scheduler triggers.
type Runner interface {
	RecomputePrices(ctx context.Context, daysThreshold *int) (*models.RepriceSummary, error)
}

type Scheduler struct {
	runner        Runner
	interval      time.Duration
	daysThreshold *int
	running       atomic.Bool
	wg            sync.WaitGroup
}

func New(runner Runner, interval time.Duration, daysThreshold *int) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, daysThreshold: daysThreshold}
}

// Run blocks until ctx is cancelled, starting a batch every interval.
// A tick that fires while the previous batch is still running is dropped.
// Run returns only after the batch in flight, if any, has finished.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("Scheduled repricing disabled")
		return
	}
	slog.Info("Scheduled repricing enabled", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			if !s.running.CompareAndSwap(false, true) {
				slog.Warn("Previous price recompute still running, skipping tick")
				continue
			}
			s.wg.Go(func() {
				defer s.running.Store(false)
				s.runOnce(ctx)
			})
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in scheduled price recompute", "panic", r)
		}
	}()

	summary, err := s.runner.RecomputePrices(ctx, s.daysThreshold)
	if err != nil {
		slog.Error("Scheduled price recompute failed", "error", err)
		return
	}
	slog.Info("Scheduled price recompute done", "scanned", summary.TotalScanned,
		"updated", summary.UpdatedCount, "errors", len(summary.Errors))
}
