package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvon/manasmitra/internal/models"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": kind, "message": message})
}

func TestClient_CreateProfileAdoptsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/profiles":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Empty(t, r.Header.Get("Authorization"))
			writeData(w, http.StatusCreated, models.Profile{ID: "p-1", Token: "tok"})
		case "/api/v1/checkins/trend":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeData(w, http.StatusOK, models.MoodTrend{Points: []models.MoodTrendPoint{{MoodScore: 5}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := New(server.URL+"/", "")
	_, err := client.Trend(context.Background())
	require.ErrorIs(t, err, ErrNoProfile)

	p, err := client.CreateProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "tok", client.Token())

	trend, err := client.Trend(context.Background())
	require.NoError(t, err)
	require.Len(t, trend.Points, 1)
	assert.Equal(t, 5, trend.Points[0].MoodScore)
}

func TestClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req models.CheckInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.MoodSad, req.Mood)
		assert.Equal(t, []models.Feeling{models.FeelingLonely}, req.Feelings)

		writeData(w, http.StatusCreated, models.SubmittedCheckIn{
			CheckIn:       models.CheckIn{ID: "c-1", Mood: req.Mood, Feelings: req.Feelings},
			CheckInResult: models.CheckInResult{Response: "I hear you.", Recommendation: "Call a friend."},
		})
	}))
	defer server.Close()

	got, err := New(server.URL, "tok").Submit(context.Background(), models.CheckInRequest{
		Mood:     models.MoodSad,
		Feelings: []models.Feeling{models.FeelingLonely},
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", got.CheckIn.ID)
	assert.Equal(t, "I hear you.", got.Response)
	assert.Equal(t, "Call a friend.", got.Recommendation)
}

func TestClient_AffirmationQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Anxious", r.URL.Query().Get("mood"))
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		writeData(w, http.StatusOK, models.CachedAffirmation{Affirmation: "Breathe.", Mood: models.MoodAnxious})
	}))
	defer server.Close()

	got, err := New(server.URL, "tok").Affirmation(context.Background(), models.MoodAnxious, true)
	require.NoError(t, err)
	assert.Equal(t, "Breathe.", got.Affirmation)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantStatus    int
		wantTemporary bool
	}{
		{
			name: "unavailable",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "Service Unavailable", "try again later")
			},
			wantStatus:    http.StatusServiceUnavailable,
			wantTemporary: true,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusBadRequest, "Bad Request", "mood is required")
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "non json body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := New(server.URL, "tok").Stats(context.Background())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "err = %v", err)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantTemporary, apiErr.Temporary())
		})
	}
}
