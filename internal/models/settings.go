package models

import "time"

// Rate limit scopes. Each API route group is counted under its own scope so
// a burst of check-ins does not use up the affirmation budget. Groups
// without a stored rate use RateLimitScopeDefault.
const (
	RateLimitScopeDefault     = "default"
	RateLimitScopeProfiles    = "profiles"
	RateLimitScopeCheckIns    = "checkins"
	RateLimitScopeAffirmation = "affirmation"
	RateLimitScopeMindfulness = "mindfulness"
)

// RateLimitScopes lists every scope the server enforces.
var RateLimitScopes = []string{
	RateLimitScopeDefault,
	RateLimitScopeProfiles,
	RateLimitScopeCheckIns,
	RateLimitScopeAffirmation,
	RateLimitScopeMindfulness,
}

// ValidRateLimitScope reports whether scope is enforced by the server.
func ValidRateLimitScope(scope string) bool {
	for _, s := range RateLimitScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// CorsConfig is the hot-reloaded CORS policy for the web client.
type CorsConfig struct {
	AllowedOrigins   []string  `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RatelimitConfig is the request rate for one scope, in limiter format
// ("5-S", "100-M").
type RatelimitConfig struct {
	Scope     string    `json:"scope"`
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}
