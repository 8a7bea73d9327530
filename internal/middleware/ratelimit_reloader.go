package middleware

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/database"
	"github.com/benvon/manasmitra/internal/models"
)

// RateLimitReloader enforces a rate per route scope and periodically reloads
// the rates from the settings database. A scope without a stored rate uses
// the stored default scope, then the built-in default.
type RateLimitReloader struct {
	store       limiter.Store
	repo        database.RatelimitConfigStore
	defaultRate string
	log         *zap.Logger
	interval    time.Duration

	mu       sync.RWMutex
	limiters map[string]*stdlibmw.Middleware
	rates    map[string]string
}

// NewRateLimitReloader loads the rates once and returns the reloader. repo
// may be nil, in which case defaultRate applies to every scope.
func NewRateLimitReloader(store limiter.Store, repo database.RatelimitConfigStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if _, err := limiter.NewRateFromFormatted(defaultRate); err != nil {
		defaultRate = defaultRatelimitRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
	r.Load(context.Background())
	return r
}

// Middleware limits requests under scope with whatever rate is current.
func (r *RateLimitReloader) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.limiter(scope).Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads on every interval until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
	if r.interval <= 0 || r.repo == nil {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Load(ctx)
		}
	}
}

// Rate returns the formatted rate in force for scope.
func (r *RateLimitReloader) Rate(scope string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rate, ok := r.rates[scope]; ok {
		return rate
	}
	return r.rates[models.RateLimitScopeDefault]
}

func (r *RateLimitReloader) limiter(scope string) *stdlibmw.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.limiters[scope]; ok {
		return m
	}
	return r.limiters[models.RateLimitScopeDefault]
}

// stored reads the configured rates. ok is false when the database could
// not be read, so the current rates stay in force.
func (r *RateLimitReloader) stored(ctx context.Context) (map[string]string, bool) {
	out := make(map[string]string)
	if r.repo == nil {
		return out, true
	}
	rows, err := r.repo.List(ctx)
	if err != nil {
		r.log.Warn("ratelimit_config_load_failed", zap.Error(err))
		return nil, false
	}
	for _, row := range rows {
		out[row.Scope] = row.Rate
	}
	if _, ok := out[models.RateLimitScopeDefault]; !ok {
		// Seed the default so operators see it in 'configure ratelimit list'.
		seed := &models.RatelimitConfig{Scope: models.RateLimitScopeDefault, Rate: r.defaultRate}
		if err := r.repo.Set(ctx, seed); err != nil {
			r.log.Error("failed_to_save_default_ratelimit_config", zap.Error(err), zap.String("default_rate", r.defaultRate))
		}
	}
	return out, true
}

// Load rebuilds the per-scope limiters from the stored rates.
func (r *RateLimitReloader) Load(ctx context.Context) {
	stored, ok := r.stored(ctx)
	if !ok {
		r.mu.RLock()
		loaded := r.limiters != nil
		r.mu.RUnlock()
		if loaded {
			return
		}
		stored = map[string]string{}
	}

	parse := func(scope, formatted, fallback string) string {
		if formatted == "" {
			return fallback
		}
		if _, err := limiter.NewRateFromFormatted(formatted); err != nil {
			r.log.Error("invalid_stored_rate_using_fallback",
				zap.String("scope", scope),
				zap.String("rate", formatted),
				zap.String("fallback", fallback),
				zap.Error(err),
			)
			return fallback
		}
		return formatted
	}

	base := parse(models.RateLimitScopeDefault, stored[models.RateLimitScopeDefault], r.defaultRate)
	limiters := make(map[string]*stdlibmw.Middleware, len(models.RateLimitScopes))
	rates := make(map[string]string, len(models.RateLimitScopes))
	for _, scope := range models.RateLimitScopes {
		formatted := parse(scope, stored[scope], base)
		rate, _ := limiter.NewRateFromFormatted(formatted)
		limiters[scope] = newScopedLimiter(r.store, scope, rate)
		rates[scope] = formatted
	}

	r.mu.Lock()
	changed := !maps.Equal(r.rates, rates)
	r.limiters = limiters
	r.rates = rates
	r.mu.Unlock()

	if changed {
		r.log.Info("ratelimit_config_loaded", zap.Any("rates", rates))
	}
}
