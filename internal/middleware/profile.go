package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/request"
	"github.com/benvon/manasmitra/internal/services/ai"
)

// TokenVerifier resolves a bearer token to a profile ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type profileHolderKey struct{}

// profileHolder lets outer middleware see the profile resolved by ProfileScope.
type profileHolder struct {
	id string
}

func withProfileHolder(ctx context.Context, h *profileHolder) context.Context {
	return context.WithValue(ctx, profileHolderKey{}, h)
}

// ProfileScope requires a valid profile token and scopes the request to
// its profile.
func ProfileScope(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondError(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
				return
			}

			profileID, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("profile_token_rejected", zap.Error(err), ClientIPField(r))
				respondError(w, http.StatusUnauthorized, "Invalid or expired profile token")
				return
			}

			ctx := request.WithProfileID(r.Context(), profileID)
			ctx = ai.WithProfileID(ctx, profileID)
			if h, ok := ctx.Value(profileHolderKey{}).(*profileHolder); ok {
				h.id = profileID
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the token from the Authorization header. Browsers cannot
// set headers on WebSocket upgrades, so the access_token query parameter is
// accepted for those requests only.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if isWebSocketUpgrade(r) {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
