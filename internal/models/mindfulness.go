package models

// SessionType is the kind of guided mindfulness session
type SessionType string

const (
	SessionTypeBreathing     SessionType = "breathing"
	SessionTypeMeditation    SessionType = "meditation"
	SessionTypeBodyScan      SessionType = "body-scan"
	SessionTypeMindfulMoment SessionType = "mindful-moment"
)

// SessionTypes lists the known session types.
var SessionTypes = []SessionType{
	SessionTypeBreathing,
	SessionTypeMeditation,
	SessionTypeBodyScan,
	SessionTypeMindfulMoment,
}

// Valid reports whether s is a known session type.
func (s SessionType) Valid() bool {
	for _, known := range SessionTypes {
		if s == known {
			return true
		}
	}
	return false
}

// Experience is the self-reported mindfulness experience level
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
)

// Valid reports whether e is a known experience level.
func (e Experience) Valid() bool {
	switch e {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced:
		return true
	default:
		return false
	}
}

// SessionDurations are the preset durations offered by the session picker, in minutes.
var SessionDurations = []int{3, 5, 10, 15, 20}

// DefaultSessionDuration is the preselected duration in minutes.
const DefaultSessionDuration = 5

// MaxSessionHistory is the number of completed sessions retained per profile.
const MaxSessionHistory = 50

// GuidanceStep is one timed cue inside a session script.
type GuidanceStep struct {
	TimeMarker string `json:"timeMarker"`
	Text       string `json:"text" validate:"required"`
}

// MindfulnessSession is a generated or built-in session script.
type MindfulnessSession struct {
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description"`
	Instructions []string       `json:"instructions"`
	Guidance     []GuidanceStep `json:"guidance" validate:"min=1,dive"`
	Benefits     []string       `json:"benefits"`
}

// SessionProgress records one completed session.
type SessionProgress struct {
	SessionID   string      `json:"sessionId"`
	CompletedAt string      `json:"completedAt"`
	Duration    int         `json:"duration"`
	Mood        Mood        `json:"mood"`
	SessionType SessionType `json:"sessionType"`
}

// SessionProgressRequest is the client payload for recording a session.
type SessionProgressRequest struct {
	SessionID   string      `json:"sessionId"`
	Duration    int         `json:"duration" validate:"required,min=1,max=30"`
	Mood        Mood        `json:"mood" validate:"required,mood"`
	SessionType SessionType `json:"sessionType" validate:"required,session_type"`
}

// SessionStats summarizes a profile's session history.
type SessionStats struct {
	TotalSessions int         `json:"totalSessions"`
	WeekSessions  int         `json:"weekSessions"`
	MonthSessions int         `json:"monthSessions"`
	TotalMinutes  int         `json:"totalMinutes"`
	WeekMinutes   int         `json:"weekMinutes"`
	FavoriteType  SessionType `json:"favoriteType,omitempty"`
}
