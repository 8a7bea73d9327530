package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/request"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/validation"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage keeps client-facing messages to one short line.
func sanitizeErrorMessage(message string) string {
	sanitized := strings.Join(strings.Fields(message), " ")
	if len(sanitized) > maxErrorMessageLength {
		sanitized = sanitized[:maxErrorMessageLength] + "..."
	}
	return sanitized
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func decodeAndValidate(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	return validation.Struct(v)
}

// generationStatus maps a generation or orchestration error to an HTTP status.
func generationStatus(err error) (int, string) {
	switch {
	case ai.IsValidationError(err):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Gateway Timeout"
	case ai.IsTransientUnavailable(err):
		return http.StatusServiceUnavailable, "Service Unavailable"
	case ai.IsRateLimitError(err):
		return http.StatusServiceUnavailable, "Service Unavailable"
	default:
		// Schema violations and other backend failures.
		return http.StatusBadGateway, "Bad Gateway"
	}
}

// respondGenerationError logs err and writes the mapped status. Backend
// details never reach the client except for input validation messages.
func respondGenerationError(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string, err error) {
	status, errorType := generationStatus(err)

	message := "The assistant is unavailable right now. Please try again in a moment."
	if status == http.StatusBadRequest {
		message = err.Error()
	}

	log.Warn(op+"_failed",
		logger.Profile(request.ProfileIDFromContext(r)),
		zap.String("request_id", ai.ExtractRequestID(r.Context())),
		zap.Int("status_code", status),
		logger.Err(err),
	)
	respondJSONError(w, status, errorType, message)
}

// requireProfile returns the scoped profile id or writes 401.
func requireProfile(w http.ResponseWriter, r *http.Request) (string, bool) {
	profileID := request.ProfileIDFromContext(r)
	if profileID == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Profile token required")
		return "", false
	}
	return profileID, true
}
