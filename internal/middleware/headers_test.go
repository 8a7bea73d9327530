package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	SecurityHeaders(true)(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS set on plain HTTP: %q", got)
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"GET ignored", "GET", "", "", http.StatusOK},
		{"json accepted", "POST", "application/json; charset=utf-8", "{}", http.StatusOK},
		{"bodyless post accepted", "POST", "", "", http.StatusOK},
		{"missing type with body", "POST", "", "{}", http.StatusBadRequest},
		{"wrong type", "POST", "text/plain", "hi", http.StatusUnsupportedMediaType},
		{"json lookalike", "POST", "application/jsonp", "{}", http.StatusUnsupportedMediaType},
		{"upper case json", "POST", "Application/JSON", "{}", http.StatusOK},
		{"malformed header", "POST", "application/json; charset", "{}", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.body == "" {
				req.ContentLength = 0
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			ContentType(okHandler()).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	w := httptest.NewRecorder()
	MaxRequestSize(10)(okHandler()).ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	w := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	upgrade := httptest.NewRequest("GET", "/", nil)
	upgrade.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	Timeout(time.Second)(okHandler()).ServeHTTP(w, upgrade)
	if w.Code != http.StatusOK {
		t.Errorf("upgrade status = %d, want 200", w.Code)
	}
}
