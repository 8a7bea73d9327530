package checkin

import (
	"context"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/queue"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/telemetry"
	"github.com/benvon/manasmitra/internal/validation"
)

// Service submits check-ins: respond, persist, then schedule the
// affirmation refresh.
type Service struct {
	orchestrator *Orchestrator
	store        *store.Store
	enqueuer     queue.Enqueuer
	metrics      *telemetry.Metrics
	logger       *zap.Logger
}

// NewService creates a submission service. enqueuer may be nil when no
// queue is configured.
func NewService(orchestrator *Orchestrator, st *store.Store, enqueuer queue.Enqueuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		orchestrator: orchestrator,
		store:        st,
		enqueuer:     enqueuer,
		metrics:      telemetry.NewMetrics(),
		logger:       log,
	}
}

// Submit validates req, generates the response pair and persists the
// check-in exactly as submitted. Only the prompt copy of the details is
// sanitized. Nothing is stored when generation fails.
func (s *Service) Submit(ctx context.Context, profileID string, req models.CheckInRequest) (models.SubmittedCheckIn, error) {
	if err := validation.Struct(req); err != nil {
		return models.SubmittedCheckIn{}, &ai.ValidationError{Template: "checkin", Err: err}
	}
	prompt := req
	prompt.Details = validation.SanitizeText(req.Details)

	result, err := s.orchestrator.Respond(ctx, InputFromRequest(prompt))
	if err != nil {
		s.logger.Warn("checkin_response_failed", logger.Profile(profileID), logger.Err(err))
		return models.SubmittedCheckIn{}, err
	}

	checkIn := s.store.NewCheckIn(req)
	if s.store.AppendCheckIn(ctx, profileID, checkIn) {
		s.metrics.CheckInsSubmitted.WithLabelValues(string(checkIn.Mood)).Inc()
	}

	s.scheduleAffirmationRefresh(ctx, profileID, checkIn.Mood)

	return models.SubmittedCheckIn{CheckIn: checkIn, CheckInResult: result}, nil
}

func (s *Service) scheduleAffirmationRefresh(ctx context.Context, profileID string, mood models.Mood) {
	if s.enqueuer == nil {
		return
	}
	job := queue.NewAffirmationRefreshJob(profileID, string(mood))
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		s.logger.Warn("affirmation_refresh_enqueue_failed",
			logger.Profile(profileID),
			zap.String("job_id", job.ID.String()),
			logger.Err(err),
		)
	}
}

// CheckIns returns the profile's check-in log, oldest first.
func (s *Service) CheckIns(ctx context.Context, profileID string) []models.CheckIn {
	return s.store.CheckIns(ctx, profileID)
}

// Trend returns the mood chart series.
func (s *Service) Trend(ctx context.Context, profileID string) models.MoodTrend {
	return s.store.MoodTrend(ctx, profileID)
}
