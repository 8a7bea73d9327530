package models

import (
	"reflect"
	"testing"
)

func TestMood_Score(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mood Mood
		want int
	}{
		{MoodHappy, 5},
		{MoodOkay, 3},
		{MoodAnxious, 2},
		{MoodSad, 1},
		{MoodAngry, 1},
		{Mood("Ecstatic"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.mood), func(t *testing.T) {
			t.Parallel()
			if got := tt.mood.Score(); got != tt.want {
				t.Errorf("Mood(%q).Score() = %d, want %d", tt.mood, got, tt.want)
			}
		})
	}
}

func TestMood_Valid(t *testing.T) {
	t.Parallel()

	for _, m := range Moods {
		if !m.Valid() {
			t.Errorf("Mood(%q).Valid() = false, want true", m)
		}
		if m.Emoji() == "" {
			t.Errorf("Mood(%q).Emoji() is empty", m)
		}
	}
	if Mood("happy").Valid() {
		t.Error("Mood(\"happy\").Valid() = true, want false (case sensitive)")
	}
}

func TestNormalizeFeelings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []Feeling
		want  []Feeling
	}{
		{name: "nil", input: nil, want: []Feeling{}},
		{name: "no duplicates", input: []Feeling{FeelingTired, FeelingLonely}, want: []Feeling{FeelingTired, FeelingLonely}},
		{name: "duplicates collapsed", input: []Feeling{FeelingLonely, FeelingTired, FeelingLonely}, want: []Feeling{FeelingLonely, FeelingTired}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeFeelings(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeFeelings(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSessionType_Valid(t *testing.T) {
	t.Parallel()

	for _, st := range SessionTypes {
		if !st.Valid() {
			t.Errorf("SessionType(%q).Valid() = false, want true", st)
		}
	}
	if SessionType("yoga").Valid() {
		t.Error("SessionType(\"yoga\").Valid() = true, want false")
	}
}
