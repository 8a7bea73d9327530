package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Prompt is a rendered request to a text-generation backend.
type Prompt struct {
	// Operation names the template, used for logging and metrics.
	Operation string
	System    string
	User      string
	Sampling  Sampling
}

// Sampling carries per-template generation settings. Zero values leave the
// backend's defaults in place.
type Sampling struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// Backend is the generation port. Implementations return the raw JSON text of
// the model's reply. A temporarily unavailable backend must return an error
// matching ErrTransientUnavailable.
type Backend interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt Prompt) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// ProviderFactory creates a Backend from string settings
type ProviderFactory func(config map[string]string) (Backend, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[strings.ToLower(name)] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Backend, error) {
	factory, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name, Known: r.names()}
	}
	return factory(config)
}

func (r *ProviderRegistry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name  string
	Known []string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("AI provider not found: %s (known: %s)", e.Name, strings.Join(e.Known, ", "))
}
