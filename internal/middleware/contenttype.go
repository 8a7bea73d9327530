package middleware

import (
	"mime"
	"net/http"
)

// ContentType requires a JSON media type on requests that carry a body.
// Bodyless POSTs such as profile creation pass without one.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Content-Type")
		if header == "" {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}
			respondError(w, http.StatusBadRequest, "Content-Type header is required")
			return
		}

		mediaType, _, err := mime.ParseMediaType(header)
		if err != nil || mediaType != "application/json" {
			respondError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}
