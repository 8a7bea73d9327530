package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsTransientUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "503 api error", err: &APIError{StatusCode: http.StatusServiceUnavailable}, want: true},
		{name: "wrapped 503", err: fmt.Errorf("call failed: %w", &APIError{StatusCode: http.StatusServiceUnavailable}), want: true},
		{name: "sentinel", err: ErrTransientUnavailable, want: true},
		{name: "500", err: &APIError{StatusCode: http.StatusInternalServerError}, want: false},
		{name: "429", err: &APIError{StatusCode: http.StatusTooManyRequests}, want: false},
		{name: "plain error", err: errors.New("503 in text only"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientUnavailable(tt.err); got != tt.want {
				t.Errorf("IsTransientUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	retryAfter := 42 * time.Second
	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{name: "default first", err: errors.New("boom"), attempt: 0, want: 5 * time.Second},
		{name: "default second", err: errors.New("boom"), attempt: 1, want: 10 * time.Second},
		{name: "default capped", err: errors.New("boom"), attempt: 10, want: 5 * time.Minute},
		{name: "rate limited", err: &APIError{StatusCode: http.StatusTooManyRequests}, attempt: 0, want: 60 * time.Second},
		{name: "rate limit capped", err: &APIError{StatusCode: http.StatusTooManyRequests}, attempt: 9, want: 15 * time.Minute},
		{name: "retry after honoured", err: &APIError{StatusCode: http.StatusServiceUnavailable, RetryAfter: &retryAfter}, attempt: 3, want: retryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetRetryDelay(tt.err, tt.attempt); got != tt.want {
				t.Errorf("GetRetryDelay(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	r := NewProviderRegistry()
	RegisterOpenAI(r, nil, false)

	if _, err := r.GetProvider("OpenAI", map[string]string{"api_key": "sk-test"}); err != nil {
		t.Errorf("GetProvider(openai) unexpected error: %v", err)
	}
	if _, err := r.GetProvider("openai", map[string]string{}); err == nil {
		t.Error("GetProvider(openai) without key should fail")
	}

	var notFound *ErrProviderNotFound
	if _, err := r.GetProvider("genkit", nil); !errors.As(err, &notFound) {
		t.Errorf("GetProvider(genkit) error = %v, want ErrProviderNotFound", err)
	}
}

func TestLoadTemplates_RejectsIncompleteCatalogue(t *testing.T) {
	t.Parallel()

	if _, err := LoadTemplates([]byte("affirmation:\n  system: hi\n")); err == nil {
		t.Error("LoadTemplates() with missing templates should fail")
	}
	if _, err := LoadTemplates([]byte(":::")); err == nil {
		t.Error("LoadTemplates() with invalid YAML should fail")
	}
	if DefaultTemplates().Affirmation.Fallback == nil {
		t.Error("affirmation template should declare a fallback")
	}
	if DefaultTemplates().EmpatheticResponse.Fallback != nil {
		t.Error("empathetic response template should not declare a fallback")
	}
}
