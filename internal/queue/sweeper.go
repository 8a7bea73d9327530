package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/telemetry"
)

const sweepTimeout = 2 * time.Minute

// DeadLetterSweeper drops dead-lettered affirmation jobs once they are older
// than the retention window. A refresh that failed a day ago is for a mood
// the user has likely moved on from.
type DeadLetterSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

// NewDeadLetterSweeper returns a sweeper. A nil purger makes every sweep a no-op.
func NewDeadLetterSweeper(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *DeadLetterSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetterSweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
		metrics:   telemetry.NewMetrics(),
	}
}

// Run sweeps once immediately, then on every interval until ctx ends.
// Failed sweeps are logged and retried on the next tick.
func (s *DeadLetterSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	return s.run(ctx, ticker.C)
}

func (s *DeadLetterSweeper) run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("dlq_sweep_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
		}
	}
}

// Sweep purges expired dead letters once and reports how many were dropped.
func (s *DeadLetterSweeper) Sweep(ctx context.Context) (int, error) {
	if s.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	if n > 0 {
		s.metrics.JobsProcessed.WithLabelValues(string(JobTypeAffirmationRefresh), "dead_letter_expired").Add(float64(n))
		s.logger.Info("dlq_swept", zap.Int("purged", n), zap.Duration("retention", s.retention))
	}
	if err != nil {
		return n, fmt.Errorf("sweep dead letters: %w", err)
	}
	return n, nil
}
