package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueChecker is the health surface of the job queue.
type QueueChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	store Pinger
	queue QueueChecker
}

// NewHealthChecker creates a new health checker. queue may be nil when no
// broker is configured.
func NewHealthChecker(store Pinger, queue QueueChecker) *HealthChecker {
	return &HealthChecker{store: store, queue: queue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. ?mode=extended also checks the
// store backend and the queue.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := make(map[string]string)
		healthy := true

		checks["store"], healthy = checkResult(h.store != nil, func() error { return h.store.Ping(ctx) }, healthy)
		checks["queue"], healthy = checkResult(h.queue != nil, func() error { return h.queue.HealthCheck(ctx) }, healthy)

		response.Checks = checks
		if !healthy {
			response.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func checkResult(configured bool, check func() error, healthy bool) (string, bool) {
	if !configured {
		return "not configured", healthy
	}
	if err := check(); err != nil {
		return "unhealthy: " + sanitizeErrorMessage(err.Error()), false
	}
	return "healthy", healthy
}
