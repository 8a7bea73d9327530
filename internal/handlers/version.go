package handlers

import (
	"net/http"
	"time"
)

// Version is set at build time with -ldflags "-X .../handlers.Version=...".
var Version = "dev"

// VersionInfo handles /version. Only the version string is exposed.
func VersionInfo(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
