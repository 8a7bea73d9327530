package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/services/checkin"
)

// CheckInHandler handles check-in submission and history
type CheckInHandler struct {
	service *checkin.Service
	logger  *zap.Logger
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(service *checkin.Service, log *zap.Logger) *CheckInHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckInHandler{service: service, logger: log}
}

// RegisterRoutes registers check-in routes. The router should carry the /checkins prefix.
func (h *CheckInHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.SubmitCheckIn).Methods(http.MethodPost)
	r.HandleFunc("", h.ListCheckIns).Methods(http.MethodGet)
	r.HandleFunc("/trend", h.GetTrend).Methods(http.MethodGet)
}

// SubmitCheckIn responds to and stores a check-in. Nothing is stored when
// either generated reply fails.
func (h *CheckInHandler) SubmitCheckIn(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}

	var req models.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	submitted, err := h.service.Submit(r.Context(), profileID, req)
	if err != nil {
		respondGenerationError(w, r, h.logger, "checkin_submit", err)
		return
	}

	respondJSON(w, http.StatusCreated, submitted)
}

// ListCheckIns returns the profile's check-ins, oldest first.
func (h *CheckInHandler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}

	checkIns := h.service.CheckIns(r.Context(), profileID)
	if checkIns == nil {
		checkIns = []models.CheckIn{}
	}
	respondJSON(w, http.StatusOK, checkIns)
}

// GetTrend returns the mood chart series.
func (h *CheckInHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.service.Trend(r.Context(), profileID))
}
