package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/request"
	"github.com/benvon/manasmitra/internal/services/ai"
	"go.uber.org/zap"
)

// Logging creates logging middleware
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			// The profile is resolved further down the chain; read it back through a holder.
			holder := &profileHolder{}
			r = r.WithContext(withProfileHolder(r.Context(), holder))

			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", ai.ExtractRequestID(r.Context())),
			}
			if holder.id != "" {
				fields = append(fields, logpkg.Profile(holder.id))
			}
			logger.Info("http_request", fields...)
		})
	}
}

// ClientIPField is the sanitized client address for log entries.
func ClientIPField(r *http.Request) zap.Field {
	return zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength))
}
