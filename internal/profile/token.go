// Package profile issues and verifies anonymous profile tokens. A profile
// is a random identifier; there are no accounts or credentials behind it.
package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/benvon/manasmitra/internal/models"
)

// TokenIssuer is the iss claim on every profile token.
const TokenIssuer = "manasmitra"

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid profile token")

// Tokens signs and verifies HS256 profile tokens.
type Tokens struct {
	key jwk.Key
	ttl time.Duration
	now func() time.Time
}

// NewTokens creates a token service from a shared secret.
func NewTokens(secret []byte, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("profile token secret must be at least 32 bytes")
	}
	key, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to build signing key: %w", err)
	}
	return &Tokens{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue creates a new profile and its signed token.
func (t *Tokens) Issue() (models.Profile, error) {
	id := uuid.New().String()
	now := t.now().UTC()
	exp := now.Add(t.ttl)

	token, err := jwt.NewBuilder().
		Issuer(TokenIssuer).
		Subject(id).
		IssuedAt(now).
		Expiration(exp).
		Build()
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, t.key))
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return models.Profile{ID: id, Token: string(signed), ExpiresAt: exp.Format(time.RFC3339)}, nil
}

// Verify checks a token and returns its profile ID.
func (t *Tokens) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, t.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithClock(jwt.ClockFunc(t.now)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub := token.Subject()
	if _, err := uuid.Parse(sub); err != nil {
		return "", fmt.Errorf("%w: subject is not a profile id", ErrInvalidToken)
	}
	return sub, nil
}
