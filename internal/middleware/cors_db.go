package middleware

import (
	"context"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/database"
)

const (
	defaultCORSOrigin = "http://localhost:3000"
	defaultCORSMaxAge = 86400
)

// CORSReloader applies the CORS policy from the settings database and
// reloads it periodically. Until a policy is stored, FRONTEND_URL is the
// only allowed origin.
type CORSReloader struct {
	repo     database.CorsConfigStore
	fallback []string
	log      *zap.Logger
	interval time.Duration

	current atomic.Pointer[cors.Cors]
	origins atomic.Pointer[[]string]
}

// NewCORSReloader loads the policy once and returns the reloader. repo may be
// nil, in which case the fallback origin applies.
func NewCORSReloader(repo database.CorsConfigStore, frontendURL string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	if log == nil {
		log = zap.NewNop()
	}
	fallback, err := database.ParseOrigins(frontendURL)
	if err != nil || len(fallback) == 0 {
		log.Warn("frontend_url_not_a_valid_origin", zap.String("frontend_url", frontendURL), zap.String("using", defaultCORSOrigin))
		fallback = []string{defaultCORSOrigin}
	}
	r := &CORSReloader{repo: repo, fallback: fallback, log: log, interval: reloadInterval}
	r.Load(context.Background())
	return r
}

// Middleware answers preflights and decorates responses with the current policy.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.current.Load().ServeHTTP(w, req, next.ServeHTTP)
		})
	}
}

// Start reloads on every interval until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
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

// Origins returns the allowed origins currently in force.
func (r *CORSReloader) Origins() []string {
	return slices.Clone(*r.origins.Load())
}

// Load rebuilds the policy. A read error keeps the policy already in force.
func (r *CORSReloader) Load(ctx context.Context) {
	origins, allowCreds, maxAge := r.fallback, false, defaultCORSMaxAge

	if r.repo != nil {
		cfg, err := r.repo.Get(ctx)
		switch {
		case err != nil:
			r.log.Warn("cors_config_load_failed", zap.Error(err))
			if r.current.Load() != nil {
				return
			}
		case cfg != nil && len(cfg.AllowedOrigins) > 0:
			origins, allowCreds, maxAge = cfg.AllowedOrigins, cfg.AllowCredentials, cfg.MaxAge
		}
	}

	if prev := r.origins.Load(); prev == nil || !slices.Equal(*prev, origins) {
		r.log.Info("cors_origins_loaded", zap.Strings("origins", origins))
	}
	r.origins.Store(&origins)
	r.current.Store(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	}))
}
