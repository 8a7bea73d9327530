package middleware

import (
	"net/http"

	"go.uber.org/zap"

	logpkg "github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/services/ai"
)

// auditEvents maps the statuses worth a security trail to their event name.
var auditEvents = map[int]string{
	http.StatusUnauthorized:    "profile_token_rejected",
	http.StatusForbidden:       "websocket_origin_rejected",
	http.StatusTooManyRequests: "rate_limit_violation",
}

// Audit logs rejected profile tokens, refused player origins and rate limit
// violations at warn level.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			event, ok := auditEvents[wrapped.statusCode]
			if !ok {
				return
			}
			fields := []zap.Field{
				zap.Int("status_code", wrapped.statusCode),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("request_id", ai.ExtractRequestID(r.Context())),
				ClientIPField(r),
			}
			if wrapped.statusCode == http.StatusTooManyRequests {
				fields = append(fields,
					zap.String("limit", wrapped.Header().Get("X-RateLimit-Limit")),
					zap.String("reset", wrapped.Header().Get("X-RateLimit-Reset")),
				)
			}
			logger.Warn(event, fields...)
		})
	}
}
