package models

// CachedAffirmation is the last affirmation generated for a profile.
type CachedAffirmation struct {
	Affirmation string `json:"affirmation"`
	Mood        Mood   `json:"mood,omitempty"`
	GeneratedAt string `json:"generatedAt"`
}

// Profile is an anonymous browser-profile identity.
type Profile struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
