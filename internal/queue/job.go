package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeAffirmationRefresh regenerates a profile's cached affirmation
	// after a check-in, tuned to the new mood.
	JobTypeAffirmationRefresh JobType = "affirmation_refresh"
)

// DefaultMaxRetries is how often a job is re-enqueued after a transient failure.
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	ProfileID  string         `json:"profile_id"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, profileID string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		ProfileID:  profileID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewAffirmationRefreshJob creates a refresh job for a profile's latest mood.
// The job expires after a day; a stale refresh is not worth running.
func NewAffirmationRefreshJob(profileID, mood string) *Job {
	job := NewJob(JobTypeAffirmationRefresh, profileID)
	if mood != "" {
		job.Metadata["mood"] = mood
	}
	notAfter := job.CreatedAt.Add(24 * time.Hour)
	job.NotAfter = &notAfter
	return job
}

// MetadataString returns a string metadata value, or "".
func (j *Job) MetadataString(key string) string {
	if j.Metadata == nil {
		return ""
	}
	s, _ := j.Metadata[key].(string)
	return s
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
