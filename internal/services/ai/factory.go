package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/config"
)

// ProviderOffline is a backend that always reports unavailability, so every
// template serves its fallback (or fails) without network access.
const ProviderOffline = "offline"

// RegisterOffline adds the offline backend to r.
func RegisterOffline(r *ProviderRegistry) {
	r.Register(ProviderOffline, func(map[string]string) (Backend, error) {
		return BackendFunc(func(context.Context, Prompt) (string, error) {
			return "", ErrTransientUnavailable
		}), nil
	})
}

// NewClientFromConfig selects the configured backend and applies the
// configured retry policy, per-attempt timeout and outbound rate limit.
func NewClientFromConfig(cfg *config.Config, logger *zap.Logger, debugMode bool) (*Client, error) {
	registry := NewProviderRegistry()
	RegisterOpenAI(registry, logger, debugMode)
	RegisterOffline(registry)

	backend, err := registry.GetProvider(cfg.AIProvider, map[string]string{
		"api_key":  cfg.OpenAIKey,
		"base_url": cfg.AIBaseURL,
		"model":    cfg.AIModel,
	})
	if err != nil {
		return nil, err
	}

	return NewClient(backend,
		WithRetryPolicy(RetryPolicy{MaxAttempts: cfg.AIMaxAttempts, BaseDelay: cfg.AIBackoffBase}),
		WithAttemptTimeout(cfg.AITimeout),
		WithRateLimit(cfg.AIRatePerSecond),
		WithLogger(logger),
	), nil
}
