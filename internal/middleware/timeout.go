package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout leaves room for a generation call with all of its retries.
	DefaultRequestTimeout = 2 * time.Minute
)

// Timeout enforces a deadline on request handlers. WebSocket upgrades are
// passed through untouched; http.TimeoutHandler cannot hijack.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		limited := http.TimeoutHandler(next, timeout, `{"success":false,"error":"Service Unavailable","message":"Request Timeout"}`)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
