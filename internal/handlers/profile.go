package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/models"
)

// ProfileIssuer mints anonymous profile tokens.
type ProfileIssuer interface {
	Issue() (models.Profile, error)
}

// ProfileHandler creates anonymous browser profiles.
type ProfileHandler struct {
	issuer ProfileIssuer
	logger *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(issuer ProfileIssuer, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{issuer: issuer, logger: log}
}

// RegisterRoutes registers profile routes. The router should carry the /profiles prefix.
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateProfile).Methods(http.MethodPost)
}

// CreateProfile issues a new profile id and its bearer token.
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, _ *http.Request) {
	profile, err := h.issuer.Issue()
	if err != nil {
		h.logger.Error("profile_issue_failed", logger.Err(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create profile")
		return
	}

	h.logger.Info("profile_created", logger.Profile(profile.ID))
	respondJSON(w, http.StatusCreated, profile)
}
