package models

import "time"

// Mood is the single required mood of a check-in
type Mood string

const (
	MoodHappy   Mood = "Happy"
	MoodOkay    Mood = "Okay"
	MoodSad     Mood = "Sad"
	MoodAnxious Mood = "Anxious"
	MoodAngry   Mood = "Angry"
)

// Moods lists the selectable moods in display order.
var Moods = []Mood{MoodHappy, MoodOkay, MoodSad, MoodAnxious, MoodAngry}

var moodEmoji = map[Mood]string{
	MoodHappy:   "😊",
	MoodOkay:    "😐",
	MoodSad:     "😢",
	MoodAnxious: "😟",
	MoodAngry:   "😠",
}

// moodScores maps moods onto the 1..5 trend scale.
var moodScores = map[Mood]int{
	MoodHappy:   5,
	MoodOkay:    3,
	MoodAnxious: 2,
	MoodSad:     1,
	MoodAngry:   1,
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	_, ok := moodScores[m]
	return ok
}

// Emoji returns the display glyph for the mood, or "" if unknown.
func (m Mood) Emoji() string {
	return moodEmoji[m]
}

// Score returns the trend score for the mood. Unknown moods score 0.
func (m Mood) Score() int {
	return moodScores[m]
}

// Feeling is an optional secondary emotion tag
type Feeling string

const (
	FeelingGrateful    Feeling = "Grateful"
	FeelingStressed    Feeling = "Stressed"
	FeelingLonely      Feeling = "Lonely"
	FeelingOptimistic  Feeling = "Optimistic"
	FeelingTired       Feeling = "Tired"
	FeelingMotivated   Feeling = "Motivated"
	FeelingOverwhelmed Feeling = "Overwhelmed"
	FeelingPeaceful    Feeling = "Peaceful"
)

// Feelings lists the selectable feelings in display order.
var Feelings = []Feeling{
	FeelingGrateful,
	FeelingStressed,
	FeelingLonely,
	FeelingOptimistic,
	FeelingTired,
	FeelingMotivated,
	FeelingOverwhelmed,
	FeelingPeaceful,
}

// Valid reports whether f is one of the known feelings.
func (f Feeling) Valid() bool {
	for _, known := range Feelings {
		if f == known {
			return true
		}
	}
	return false
}

// NormalizeFeelings collapses duplicates while keeping first-seen order.
// The result is never nil so it serializes as [].
func NormalizeFeelings(feelings []Feeling) []Feeling {
	out := make([]Feeling, 0, len(feelings))
	seen := make(map[Feeling]struct{}, len(feelings))
	for _, f := range feelings {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// CheckIn is one persisted mood log entry. Records are append-only.
type CheckIn struct {
	ID       string    `json:"id"`
	Date     string    `json:"date"`
	Mood     Mood      `json:"mood"`
	Feelings []Feeling `json:"feelings"`
	Details  string    `json:"details,omitempty"`
}

// Time parses the RFC 3339 date of the check-in.
func (c CheckIn) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, c.Date)
}

// CheckInRequest is the payload submitted by the wizard.
type CheckInRequest struct {
	Mood     Mood      `json:"mood" validate:"required,mood"`
	Feelings []Feeling `json:"feelings" validate:"max=8,dive,feeling"`
	Details  string    `json:"details"`
}

// CheckInResult is the combined output of the two generation calls.
type CheckInResult struct {
	Response       string `json:"response"`
	Recommendation string `json:"recommendation"`
}

// SubmittedCheckIn is returned once a check-in has been responded to and stored.
type SubmittedCheckIn struct {
	CheckIn CheckIn `json:"checkIn"`
	CheckInResult
}

// MoodTrendPoint is one point on the mood chart.
type MoodTrendPoint struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	MoodScore int    `json:"moodScore"`
	MoodName  Mood   `json:"moodName"`
}

// MoodTrend is the chart series plus whether there is enough data to draw a line.
type MoodTrend struct {
	Points     []MoodTrendPoint `json:"points"`
	EnoughData bool             `json:"enoughData"`
}
