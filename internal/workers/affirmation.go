package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/queue"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/telemetry"
)

var errMissingProfile = errors.New("profile_id is required for affirmation refresh job")

// AffirmationGenerator produces affirmations. *ai.Client satisfies it.
type AffirmationGenerator interface {
	Affirmation(ctx context.Context, in ai.AffirmationInput) (ai.AffirmationOutput, error)
}

// AffirmationRefresher regenerates a profile's cached affirmation after a check-in.
type AffirmationRefresher struct {
	generator AffirmationGenerator
	store     *store.Store
	jobQueue  queue.Enqueuer // For re-enqueueing jobs with delays
	metrics   *telemetry.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAffirmationRefresher creates a new refresher. jobQueue may be nil, in
// which case failed jobs go straight to the DLQ.
func NewAffirmationRefresher(generator AffirmationGenerator, st *store.Store, jobQueue queue.Enqueuer, log *zap.Logger) *AffirmationRefresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AffirmationRefresher{
		generator: generator,
		store:     st,
		jobQueue:  jobQueue,
		metrics:   telemetry.NewMetrics(),
		logger:    log,
		now:       time.Now,
	}
}

// RefreshAffirmation generates and caches a new affirmation for the job's profile.
func (a *AffirmationRefresher) RefreshAffirmation(ctx context.Context, job *queue.Job) error {
	if job.ProfileID == "" {
		return errMissingProfile
	}

	mood := models.Mood(job.MetadataString("mood"))
	if !mood.Valid() {
		mood = ""
	}

	ctx = ai.WithProfileID(ctx, job.ProfileID)
	out, err := a.generator.Affirmation(ctx, ai.AffirmationInput{Mood: mood})
	if err != nil {
		return fmt.Errorf("failed to generate affirmation: %w", err)
	}
	if out.Affirmation == ai.FallbackAffirmation {
		// Leave the previous affirmation in place; the next request regenerates.
		a.logger.Info("affirmation_refresh_skipped_fallback", logger.Profile(job.ProfileID))
		return nil
	}

	a.store.SaveAffirmation(ctx, job.ProfileID, out.Affirmation, mood)
	a.logger.Debug("affirmation_refreshed",
		logger.Profile(job.ProfileID),
		zap.String("mood", string(mood)),
	)
	return nil
}

// ProcessJob processes a job based on its type and settles the delivery.
func (a *AffirmationRefresher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		a.record(job, "expired")
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired job: %w", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeAffirmationRefresh:
		if err := a.RefreshAffirmation(ctx, job); err != nil {
			return a.handleJobError(ctx, msg, job, err)
		}
		a.record(job, "success")
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		a.record(job, "unknown_type")
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// isPermanent reports errors that will fail the same way on every retry.
func isPermanent(err error) bool {
	return errors.Is(err, errMissingProfile) || ai.IsValidationError(err) || ai.IsSchemaViolation(err)
}

// handleJobError re-enqueues retryable failures with a delay and dead-letters the rest.
func (a *AffirmationRefresher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	jobFields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		logger.Profile(job.ProfileID),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	if isPermanent(err) || !job.CanRetry() || a.jobQueue == nil {
		a.record(job, "dead_lettered")
		a.logger.Error("job_dead_lettered", jobFields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (not retried): %w", err)
	}

	retryDelay := ai.GetRetryDelay(err, job.RetryCount)
	notBefore := a.now().Add(retryDelay)

	delayed := *job
	delayed.NotBefore = &notBefore
	delayed.RetryCount = job.RetryCount + 1

	if enqueueErr := a.jobQueue.Enqueue(ctx, &delayed); enqueueErr != nil {
		a.record(job, "requeued")
		a.logger.Warn("job_reenqueue_failed", append(jobFields, zap.NamedError("enqueue_error", enqueueErr))...)
		// Fall back to the broker redelivering the original.
		if nackErr := msg.Nack(true); nackErr != nil {
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue: %w", enqueueErr)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		a.logger.Warn("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
	}
	a.record(job, "retry_scheduled")
	a.logger.Info("job_retry_scheduled", append(jobFields, zap.Duration("delay", retryDelay))...)
	return nil
}

func (a *AffirmationRefresher) record(job *queue.Job, result string) {
	a.metrics.JobsProcessed.WithLabelValues(string(job.Type), result).Inc()
}
