package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/request"
	"github.com/benvon/manasmitra/internal/services/ai"
)

// errorEnvelope is the failure shape shared with the handlers package.
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorHandler turns handler panics into a 500 envelope. When the handler
// already started its response (or hijacked a player socket) only the log
// entry is written. http.ErrAbortHandler is re-raised for net/http.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				logger.Error("panic_recovered",
					zap.Any("panic", p),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("method", r.Method),
					zap.String("request_id", ai.ExtractRequestID(r.Context())),
					logpkg.Profile(request.ProfileIDFromContext(r)),
					zap.Bool("response_started", rec.wroteHeader),
					zap.Stack("stack"),
				)
				if rec.wroteHeader {
					return
				}
				respondError(rec, http.StatusInternalServerError, "Something went wrong on our side. Your check-ins are safe; please try again.")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
