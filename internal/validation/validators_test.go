package validation

import (
	"strings"
	"testing"

	"github.com/benvon/manasmitra/internal/models"
)

func TestStruct_CheckInRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     models.CheckInRequest
		wantErr string
	}{
		{
			name: "valid with feelings",
			req:  models.CheckInRequest{Mood: models.MoodSad, Feelings: []models.Feeling{models.FeelingLonely}},
		},
		{
			name: "valid without feelings",
			req:  models.CheckInRequest{Mood: models.MoodHappy},
		},
		{
			name:    "missing mood",
			req:     models.CheckInRequest{},
			wantErr: "Mood is required",
		},
		{
			name:    "unknown mood",
			req:     models.CheckInRequest{Mood: "Ecstatic"},
			wantErr: "invalid mood",
		},
		{
			name:    "unknown feeling",
			req:     models.CheckInRequest{Mood: models.MoodOkay, Feelings: []models.Feeling{"Bored"}},
			wantErr: "invalid feeling",
		},
		{
			name: "long details accepted",
			req:  models.CheckInRequest{Mood: models.MoodOkay, Details: strings.Repeat("a", 5000)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Struct(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStruct_SessionProgressRequest(t *testing.T) {
	t.Parallel()

	valid := models.SessionProgressRequest{Duration: 5, Mood: models.MoodOkay, SessionType: models.SessionTypeBreathing}
	if err := Struct(valid); err != nil {
		t.Errorf("Struct(valid) unexpected error: %v", err)
	}

	invalid := valid
	invalid.SessionType = "yoga"
	if err := Struct(invalid); err == nil {
		t.Error("Struct() with unknown session type should fail")
	}

	invalid = valid
	invalid.Duration = 31
	if err := Struct(invalid); err == nil {
		t.Error("Struct() with duration 31 should fail")
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"  hello  ", "hello"},
		{"line1\nline2", "line1\nline2"},
		{"bell\x07ring", "bellring"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeText(tt.input); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
