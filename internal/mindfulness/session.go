package mindfulness

import (
	"fmt"
	"strings"

	"github.com/benvon/manasmitra/internal/models"
)

var defaultInstructions = []string{
	"Find a comfortable position where you can be alert yet relaxed",
	"Allow your eyes to gently close or maintain a soft gaze",
	"Take a moment to notice how your body feels right now",
	"Begin to follow the guidance below when you're ready",
}

var defaultFocus = map[models.SessionType]string{
	models.SessionTypeBreathing:     "Breathe in for four counts, hold for two, and breathe out slowly for six.",
	models.SessionTypeMeditation:    "Rest your attention on your breath. When your mind wanders, gently come back.",
	models.SessionTypeBodyScan:      "Move your attention slowly from the top of your head down to your toes.",
	models.SessionTypeMindfulMoment: "Notice five things you can see, four you can hear, and three you can feel.",
}

// DefaultSession builds the offline session script used when generation is
// unavailable. It always has a title and at least one guidance step.
func DefaultSession(sessionType models.SessionType, durationMinutes int) models.MindfulnessSession {
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultSessionDuration
	}
	focus, ok := defaultFocus[sessionType]
	if !ok {
		focus = defaultFocus[models.SessionTypeBreathing]
	}

	title := "Mindfulness Session"
	if sessionType != "" {
		name := strings.ReplaceAll(string(sessionType), "-", " ")
		title = strings.ToUpper(name[:1]) + name[1:] + " Session"
	}

	guidance := []models.GuidanceStep{
		{TimeMarker: "0:00", Text: "Settle in and take a slow, easy breath."},
		{TimeMarker: "0:30", Text: focus},
		{TimeMarker: FormatTime(durationMinutes * 60 / 2), Text: "Focus on your breath... Notice the sensations in your body..."},
	}
	if durationMinutes > 1 {
		guidance = append(guidance, models.GuidanceStep{
			TimeMarker: FormatTime(durationMinutes*60 - 30),
			Text:       "Begin to bring your awareness back to the room around you.",
		})
	}

	return models.MindfulnessSession{
		Title:        title,
		Description:  fmt.Sprintf("A gentle %d-minute session to help you pause and reset.", durationMinutes),
		Instructions: append([]string(nil), defaultInstructions...),
		Guidance:     guidance,
		Benefits: []string{
			"Calms the nervous system",
			"Builds focus and present-moment awareness",
		},
	}
}

// FormatTime renders whole seconds as m:ss.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
