package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/validation"
)

// AffirmationGenerator produces affirmations. *ai.Client satisfies it.
type AffirmationGenerator interface {
	Affirmation(ctx context.Context, in ai.AffirmationInput) (ai.AffirmationOutput, error)
}

// AffirmationHandler serves the daily affirmation.
type AffirmationHandler struct {
	generator AffirmationGenerator
	store     *store.Store
	logger    *zap.Logger
	now       func() time.Time
}

// NewAffirmationHandler creates a new affirmation handler
func NewAffirmationHandler(generator AffirmationGenerator, st *store.Store, log *zap.Logger) *AffirmationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AffirmationHandler{generator: generator, store: st, logger: log, now: time.Now}
}

// RegisterRoutes registers affirmation routes. The router should carry the /affirmation prefix.
func (h *AffirmationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetAffirmation).Methods(http.MethodGet)
}

// GetAffirmation returns today's cached affirmation for the requested mood,
// generating a new one when there is none or ?refresh=true. The fixed
// fallback text is served but never cached.
func (h *AffirmationHandler) GetAffirmation(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}

	mood := models.Mood(validation.SanitizeText(r.URL.Query().Get("mood")))
	if err := validation.Struct(ai.AffirmationInput{Mood: mood}); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "mood must be at most 50 characters")
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	if !refresh {
		if cached, ok := h.store.Affirmation(r.Context(), profileID); ok && h.fresh(cached, mood) {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	out, err := h.generator.Affirmation(r.Context(), ai.AffirmationInput{Mood: mood})
	if err != nil {
		respondGenerationError(w, r, h.logger, "affirmation", err)
		return
	}

	if out.Affirmation == ai.FallbackAffirmation {
		respondJSON(w, http.StatusOK, models.CachedAffirmation{
			Affirmation: out.Affirmation,
			Mood:        mood,
			GeneratedAt: h.now().UTC().Format(time.RFC3339Nano),
		})
		return
	}

	respondJSON(w, http.StatusOK, h.store.SaveAffirmation(r.Context(), profileID, out.Affirmation, mood))
}

// fresh reports whether cached was generated today (UTC) for mood. An empty
// mood accepts any cached affirmation.
func (h *AffirmationHandler) fresh(cached models.CachedAffirmation, mood models.Mood) bool {
	if mood != "" && cached.Mood != mood {
		return false
	}
	generated, err := time.Parse(time.RFC3339Nano, cached.GeneratedAt)
	if err != nil {
		return false
	}
	y1, m1, d1 := generated.UTC().Date()
	y2, m2, d2 := h.now().UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
