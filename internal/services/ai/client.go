package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/telemetry"
	"github.com/benvon/manasmitra/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RetryPolicy controls how unavailability is retried. The wait after attempt
// n is BaseDelay*n; nothing is waited after the final attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is 3 attempts with 1s, 2s waits.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

// Delay returns the wait after the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client is the generation client: validate, render, call, decode, with the
// shared retry policy and per-template fallbacks.
type Client struct {
	backend        Backend
	templates      *Templates
	policy         RetryPolicy
	attemptTimeout time.Duration
	sleep          Sleeper
	limiter        *rate.Limiter
	logger         *zap.Logger
	metrics        *telemetry.Metrics
	tracer         trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		c.policy = p
	}
}

// WithAttemptTimeout bounds each backend call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) { c.attemptTimeout = d }
}

// WithSleeper replaces the backoff wait, for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithRateLimit caps outbound calls per second across all templates. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTemplates replaces the embedded prompt catalogue.
func WithTemplates(ts *Templates) Option {
	return func(c *Client) {
		if ts != nil {
			c.templates = ts
		}
	}
}

// NewClient creates a generation client over backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:        backend,
		templates:      DefaultTemplates(),
		policy:         DefaultRetryPolicy,
		attemptTimeout: DefaultTimeout,
		sleep:          sleepContext,
		logger:         zap.NewNop(),
		metrics:        telemetry.NewMetrics(),
		tracer:         otel.Tracer("github.com/benvon/manasmitra/internal/services/ai"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Affirmation generates a short affirmation. Falls back to a fixed message
// when the backend stays unavailable.
func (c *Client) Affirmation(ctx context.Context, in AffirmationInput) (AffirmationOutput, error) {
	return generate(ctx, c, c.templates.Affirmation, in)
}

// EmpatheticResponse generates the supportive reply to a check-in.
func (c *Client) EmpatheticResponse(ctx context.Context, in EmpatheticResponseInput) (EmpatheticResponseOutput, error) {
	return generate(ctx, c, c.templates.EmpatheticResponse, in)
}

// ResourceRecommendation recommends a wellness resource for a check-in.
func (c *Client) ResourceRecommendation(ctx context.Context, in ResourceRecommendationInput) (ResourceRecommendationOutput, error) {
	return generate(ctx, c, c.templates.ResourceRecommendation, in)
}

// MindfulnessSession builds a personalized session script. Falls back to the
// built-in script when the backend stays unavailable.
func (c *Client) MindfulnessSession(ctx context.Context, in MindfulnessSessionInput) (models.MindfulnessSession, error) {
	if in.Experience == "" {
		in.Experience = models.ExperienceBeginner
	}
	return generate(ctx, c, c.templates.MindfulnessSession, in)
}

func generate[In, Out any](ctx context.Context, c *Client, t *Template[In, Out], in In) (out Out, err error) {
	ctx, span := c.tracer.Start(ctx, "ai.generate", trace.WithAttributes(attribute.String("ai.template", t.Name)))
	start := time.Now()
	result := "success"
	defer func() {
		c.metrics.GenerationResults.WithLabelValues(t.Name, result).Inc()
		c.metrics.GenerationDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		span.End()
	}()

	if verr := validation.Struct(in); verr != nil {
		result = "invalid_input"
		return out, &ValidationError{Template: t.Name, Err: verr}
	}

	prompt, err := t.Render(in)
	if err != nil {
		result = "error"
		return out, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("ai.attempts", attempt))

		raw, callErr := c.call(ctx, prompt)
		if callErr == nil {
			c.metrics.GenerationAttempts.WithLabelValues(t.Name, "ok").Inc()
			decoded, decErr := decode[Out](t.Name, raw)
			if decErr != nil {
				result = "schema_violation"
				c.logger.Warn("generation_schema_violation",
					zap.String("template", t.Name),
					zap.String("response_preview", logger.Preview(raw, false)),
					logger.Err(decErr),
				)
				return out, decErr
			}
			return decoded, nil
		}

		lastErr = callErr
		if !IsTransientUnavailable(callErr) {
			c.metrics.GenerationAttempts.WithLabelValues(t.Name, "error").Inc()
			result = "error"
			return out, callErr
		}
		c.metrics.GenerationAttempts.WithLabelValues(t.Name, "unavailable").Inc()

		if attempt == c.policy.MaxAttempts {
			break
		}
		delay := c.policy.Delay(attempt)
		c.logger.Info("generation_retry_scheduled",
			zap.String("template", t.Name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("request_id", ExtractRequestID(ctx)),
		)
		if serr := c.sleep(ctx, delay); serr != nil {
			result = "error"
			return out, fmt.Errorf("%s retry wait: %w", t.Name, serr)
		}
	}

	if t.Fallback != nil {
		result = "fallback"
		c.logger.Warn("generation_fallback_used",
			zap.String("template", t.Name),
			zap.Int("attempts", c.policy.MaxAttempts),
			logger.Err(lastErr),
		)
		return t.Fallback(in), nil
	}

	result = "unavailable"
	return out, fmt.Errorf("%s: %d attempts exhausted: %w", t.Name, c.policy.MaxAttempts, lastErr)
}

func (c *Client) call(ctx context.Context, prompt Prompt) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%s rate limit wait: %w", prompt.Operation, err)
		}
	}
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	return c.backend.Complete(ctx, prompt)
}

func decode[Out any](name, raw string) (Out, error) {
	var out Out
	body := []byte(raw)
	if err := json.Unmarshal(body, &out); err != nil {
		// Some models wrap the object in prose or code fences.
		start := bytes.IndexByte(body, '{')
		end := bytes.LastIndexByte(body, '}')
		if start == -1 || end <= start {
			return out, &SchemaViolationError{Template: name, Err: err}
		}
		if err := json.Unmarshal(body[start:end+1], &out); err != nil {
			return out, &SchemaViolationError{Template: name, Err: err}
		}
	}
	if err := validation.Struct(out); err != nil {
		return out, &SchemaViolationError{Template: name, Err: err}
	}
	return out, nil
}

// ErrorStatus maps a generation error onto an HTTP status code.
func ErrorStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case IsTransientUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
