package request

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey string

const profileContextKey contextKey = "profile"

// ClientIP returns the caller's address without a port. The first valid
// entry of X-Forwarded-For wins, then X-Real-IP, then the connection's
// peer. Header values that do not parse as an IP are ignored.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, ok := parseAddr(first); ok {
			return addr
		}
	}
	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr
	}
	return r.RemoteAddr
}

// parseAddr accepts a bare IP or an ip:port pair and returns the unmapped IP.
func parseAddr(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	ip, err := netip.ParseAddr(raw)
	if err != nil {
		return "", false
	}
	return ip.Unmap().WithZone("").String(), true
}

// WithProfileID returns a context scoped to profileID.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileContextKey, profileID)
}

// ProfileIDFromContext returns the profile ID from the request context, or "" if missing.
func ProfileIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(profileContextKey).(string)
	return id
}
