package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrTransientUnavailable marks a backend that reported it is temporarily
	// unable to serve (HTTP 503). It is the only condition that is retried.
	ErrTransientUnavailable = errors.New("generation backend temporarily unavailable")
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = errors.New("no choices in response")
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter *time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Is lets errors.Is(err, ErrTransientUnavailable) match 503 responses.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrTransientUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// ValidationError is returned when a generation input fails its schema.
// No backend call is made.
type ValidationError struct {
	Template string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s input: %v", e.Template, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SchemaViolationError is returned when the backend reply cannot be decoded
// into the template's output shape or misses required fields.
type SchemaViolationError struct {
	Template string
	Err      error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s output violates schema: %v", e.Template, e.Err)
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }

// IsTransientUnavailable reports whether err is the retryable 503-class signal.
func IsTransientUnavailable(err error) bool {
	return err != nil && errors.Is(err, ErrTransientUnavailable)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests")
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSchemaViolation reports whether err is a SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var se *SchemaViolationError
	return errors.As(err, &se)
}

// GetRetryDelay returns how long a background job should wait before being
// re-enqueued after err. attempt starts at 0.
func GetRetryDelay(err error, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		attempt = 10
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter != nil {
		return *apiErr.RetryAfter
	}

	base := 5 * time.Second
	limit := 5 * time.Minute
	if IsRateLimitError(err) {
		base = 60 * time.Second
		limit = 15 * time.Minute
	}

	delay := base * time.Duration(1<<uint(attempt)) // #nosec G115 -- attempt is clamped to [0, 10]
	if delay > limit {
		delay = limit
	}
	return delay
}
