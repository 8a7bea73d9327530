package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benvon/manasmitra/internal/apiclient"
	"github.com/benvon/manasmitra/internal/models"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	write := func(w http.ResponseWriter, status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/profiles" && r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Unauthorized"})
			return
		}
		switch r.URL.Path {
		case "/api/v1/profiles":
			write(w, http.StatusCreated, models.Profile{ID: "p-1", Token: "tok-1", ExpiresAt: "2027-01-01T00:00:00Z"})
		case "/api/v1/affirmation":
			write(w, http.StatusOK, models.CachedAffirmation{Affirmation: "You are doing your best.", Mood: models.Mood(r.URL.Query().Get("mood"))})
		case "/api/v1/mindfulness/stats":
			write(w, http.StatusOK, models.SessionStats{TotalSessions: 3, WeekSessions: 2, MonthSessions: 3, TotalMinutes: 15, WeekMinutes: 10, FavoriteType: models.SessionTypeBreathing})
		case "/api/v1/checkins/trend":
			write(w, http.StatusOK, models.MoodTrend{})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MANASMITRA_TOKEN", "")
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProfileLifecycle(t *testing.T) {
	srv := fakeServer(t)
	file := filepath.Join(t.TempDir(), "profile.yaml")
	common := []string{"--server", srv.URL, "--profile-file", file}

	if _, err := execute(t, append([]string{"affirmation"}, common...)...); !errors.Is(err, apiclient.ErrNoProfile) {
		t.Fatalf("affirmation without profile error = %v, want ErrNoProfile", err)
	}

	out, err := execute(t, append([]string{"profile"}, common...)...)
	if err != nil {
		t.Fatalf("profile error = %v", err)
	}
	if !strings.Contains(out, "Created profile p-1") {
		t.Errorf("profile output = %q", out)
	}

	saved, err := loadProfile(file)
	if err != nil {
		t.Fatalf("loadProfile() error = %v", err)
	}
	if saved.Token != "tok-1" || saved.Server != srv.URL {
		t.Errorf("saved profile = %+v", saved)
	}

	out, err = execute(t, append([]string{"profile"}, common...)...)
	if err != nil {
		t.Fatalf("second profile error = %v", err)
	}
	if !strings.Contains(out, "Profile p-1") {
		t.Errorf("existing profile output = %q", out)
	}

	out, err = execute(t, append([]string{"affirmation", "--mood", "Sad"}, common...)...)
	if err != nil {
		t.Fatalf("affirmation error = %v", err)
	}
	if strings.TrimSpace(out) != "You are doing your best." {
		t.Errorf("affirmation output = %q", out)
	}

	out, err = execute(t, append([]string{"stats"}, common...)...)
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	for _, want := range []string{"3 total, 2 this week", "15 total", "Favorite: breathing"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, append([]string{"trend"}, common...)...)
	if err != nil {
		t.Fatalf("trend error = %v", err)
	}
	if !strings.Contains(out, "Check in at least twice") {
		t.Errorf("trend output = %q", out)
	}
}

func TestFlagValidation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "profile.yaml")

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown mood", args: []string{"affirmation", "--mood", "Elated"}},
		{name: "duration too long", args: []string{"breathe", "--duration", "31", "--offline"}},
		{name: "bad pattern", args: []string{"breathe", "--pattern", "4-4", "--offline"}},
		{name: "bad session type", args: []string{"breathe", "--type", "yoga", "--offline"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, append(tt.args, "--profile-file", file)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
