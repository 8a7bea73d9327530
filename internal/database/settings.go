package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/benvon/manasmitra/internal/models"
)

// The CORS policy is a single row.
const corsConfigKey = "default"

// ParseOrigins splits a comma-separated origin list, drops blanks and
// duplicates, and normalizes each entry to lowercase scheme://host[:port].
// "*" is passed through.
func ParseOrigins(raw string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if origin != "*" {
			u, err := url.Parse(origin)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" ||
				(u.Path != "" && u.Path != "/") || u.RawQuery != "" {
				return nil, fmt.Errorf("invalid origin %q (want scheme://host[:port])", origin)
			}
			origin = strings.ToLower(u.Scheme + "://" + u.Host)
		}
		if !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	return out, nil
}

// CorsConfigRepository stores the CORS policy.
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get returns the stored policy, or nil when none has been set.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	var origins string
	c := &models.CorsConfig{}
	err := r.db.QueryRowContext(ctx, `
		SELECT allowed_origins, allow_credentials, max_age, updated_at
		FROM cors_config WHERE config_key = $1
	`, corsConfigKey).Scan(&origins, &c.AllowCredentials, &c.MaxAge, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cors config: %w", err)
	}
	// Rows are validated on write; re-parse only to split and normalize.
	if c.AllowedOrigins, err = ParseOrigins(origins); err != nil {
		return nil, fmt.Errorf("stored cors config: %w", err)
	}
	return c, nil
}

// Set validates and replaces the policy.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	origins, err := ParseOrigins(strings.Join(c.AllowedOrigins, ","))
	if err != nil {
		return err
	}
	if len(origins) == 0 {
		return errors.New("at least one allowed origin is required")
	}
	if c.MaxAge < 0 {
		return errors.New("max age must not be negative")
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at
	`, corsConfigKey, strings.Join(origins, ","), c.AllowCredentials, c.MaxAge, now)
	if err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}
	return nil
}

// RatelimitConfigRepository stores one rate per rate limit scope.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// List returns every stored scope, ordered by scope.
func (r *RatelimitConfigRepository) List(ctx context.Context) ([]models.RatelimitConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT config_key, rate, updated_at FROM ratelimit_config ORDER BY config_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RatelimitConfig
	for rows.Next() {
		var c models.RatelimitConfig
		if err := rows.Scan(&c.Scope, &c.Rate, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ratelimit config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	return out, nil
}

// Set validates and upserts the rate for c.Scope. An empty scope means
// models.RateLimitScopeDefault.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	scope := strings.TrimSpace(c.Scope)
	if scope == "" {
		scope = models.RateLimitScopeDefault
	}
	if !models.ValidRateLimitScope(scope) {
		return fmt.Errorf("unknown rate limit scope %q (want one of %s)", scope, strings.Join(models.RateLimitScopes, ", "))
	}
	rate := strings.TrimSpace(c.Rate)
	// Reject what the server would fail to parse on reload.
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return fmt.Errorf("invalid rate %q: %w", rate, err)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, scope, rate, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}
