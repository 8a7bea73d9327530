package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/telemetry"
)

// SessionGenerator builds personalized session scripts. *ai.Client satisfies it.
type SessionGenerator interface {
	MindfulnessSession(ctx context.Context, in ai.MindfulnessSessionInput) (models.MindfulnessSession, error)
}

// MindfulnessHandler serves session scripts, history and stats.
type MindfulnessHandler struct {
	generator SessionGenerator
	store     *store.Store
	metrics   *telemetry.Metrics
	logger    *zap.Logger
}

// NewMindfulnessHandler creates a new mindfulness handler
func NewMindfulnessHandler(generator SessionGenerator, st *store.Store, log *zap.Logger) *MindfulnessHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MindfulnessHandler{
		generator: generator,
		store:     st,
		metrics:   telemetry.NewMetrics(),
		logger:    log,
	}
}

// RegisterRoutes registers mindfulness routes. The router should carry the
// /mindfulness prefix.
func (h *MindfulnessHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/history", h.ListHistory).Methods(http.MethodGet)
	r.HandleFunc("/history", h.RecordSession).Methods(http.MethodPost)
	r.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
}

// CreateSession generates a personalized session. The built-in script is
// returned when generation stays unavailable.
func (h *MindfulnessHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireProfile(w, r); !ok {
		return
	}

	var in ai.MindfulnessSessionInput
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	session, err := h.generator.MindfulnessSession(r.Context(), in)
	if err != nil {
		respondGenerationError(w, r, h.logger, "mindfulness_session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// ListHistory returns completed sessions, newest first.
func (h *MindfulnessHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.store.Sessions(r.Context(), profileID))
}

// RecordSession stores a completed session. completedAt is stamped server side.
func (h *MindfulnessHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}

	var req models.SessionProgressRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	stored := recordSession(r.Context(), h.store, h.metrics, profileID, req)
	h.logger.Debug("session_recorded",
		logger.Profile(profileID),
		zap.String("session_type", string(stored.SessionType)),
		zap.Int("duration", stored.Duration),
	)
	respondJSON(w, http.StatusCreated, stored)
}

// GetStats summarizes the session history.
func (h *MindfulnessHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.store.SessionStats(r.Context(), profileID))
}

func recordSession(ctx context.Context, st *store.Store, metrics *telemetry.Metrics, profileID string, req models.SessionProgressRequest) models.SessionProgress {
	stored := st.AddSession(ctx, profileID, models.SessionProgress{
		SessionID:   req.SessionID,
		Duration:    req.Duration,
		Mood:        req.Mood,
		SessionType: req.SessionType,
	})
	metrics.SessionsRecorded.WithLabelValues(string(stored.SessionType)).Inc()
	return stored
}
