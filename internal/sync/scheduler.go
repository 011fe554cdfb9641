package sync

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"addresshub/internal/platform/metrics"
)

// Scheduler drives the engine on a fixed interval, independent of request
// traffic. At most one sync, one update and one delete batch run per cycle,
// and cycles never overlap: if a batch is still in flight when the ticker
// fires, the cycle is skipped. Batch errors are absorbed into the batch
// result and never stop the loop.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	inFlight atomic.Bool
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

func NewScheduler(engine *Engine, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sync scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous sync cycle still running, skipping")
		return
	}
	defer s.inFlight.Store(false)

	pending, stale, deletions := s.queueDepths(ctx)

	if pending > 0 {
		if _, err := s.engine.SyncPending(ctx); err != nil {
			s.logger.Error("pending batch selection failed", "error", err)
		}
	}
	if stale > 0 {
		if _, err := s.engine.SyncStale(ctx); err != nil {
			s.logger.Error("stale batch selection failed", "error", err)
		}
	}
	if deletions > 0 {
		if _, err := s.engine.SyncDeletions(ctx); err != nil {
			s.logger.Error("deletion batch selection failed", "error", err)
		}
	}
}

func (s *Scheduler) queueDepths(ctx context.Context) (pending, stale, deletions int) {
	var err error
	if pending, err = s.engine.store.CountPending(ctx); err != nil {
		s.logger.Error("pending queue count failed", "error", err)
	}
	if stale, err = s.engine.store.CountStale(ctx); err != nil {
		s.logger.Error("stale queue count failed", "error", err)
	}
	if deletions, err = s.engine.store.CountPendingDeletion(ctx); err != nil {
		s.logger.Error("deletion queue count failed", "error", err)
	}
	if s.metrics != nil {
		s.metrics.SyncQueueDepth.WithLabelValues("pending").Set(float64(pending))
		s.metrics.SyncQueueDepth.WithLabelValues("stale").Set(float64(stale))
		s.metrics.SyncQueueDepth.WithLabelValues("deletion").Set(float64(deletions))
	}
	return pending, stale, deletions
}
