package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvon/manasmitra/internal/models"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func step(m BreatheModel, msg tea.Msg) (BreatheModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(BreatheModel), cmd
}

func TestBreatheModel_PauseKeepsBaseline(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := NewBreatheModel(context.Background(), BreatheConfig{Duration: 5, Clock: clock})
	assert.Contains(t, m.View(), "Press space to begin.")

	m, _ = step(m, keySpace)
	clock.Advance(42 * time.Second)
	m, _ = step(m, breatheTickMsg(clock.Now()))
	require.Equal(t, 42, m.Snapshot().CurrentTime)

	m, _ = step(m, keySpace)
	assert.False(t, m.Snapshot().IsPlaying)

	clock.Advance(100 * time.Second)
	m, _ = step(m, keySpace)
	m, _ = step(m, breatheTickMsg(clock.Now()))
	assert.Equal(t, 42, m.Snapshot().CurrentTime)
	assert.Contains(t, m.View(), "Breathe In")
	assert.Contains(t, m.View(), "4:18")
}

func TestBreatheModel_CompletionRecordsOnce(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	var calls []models.SessionProgressRequest
	record := func(_ context.Context, req models.SessionProgressRequest) (models.SessionProgress, error) {
		calls = append(calls, req)
		return models.SessionProgress{SessionID: "s-1", Duration: req.Duration}, nil
	}
	m := NewBreatheModel(context.Background(), BreatheConfig{
		Duration: 1,
		Mood:     models.MoodAnxious,
		Clock:    clock,
		Record:   record,
	})

	m, _ = step(m, keySpace)
	clock.Advance(2 * time.Minute)
	m, cmd := step(m, breatheTickMsg(clock.Now()))
	require.NotNil(t, cmd)
	assert.True(t, m.Snapshot().Completed)
	assert.True(t, m.recording)

	// A later tick must not record again.
	m, _ = step(m, breatheTickMsg(clock.Now()))

	msg := m.record()()
	m, _ = step(m, msg)
	require.Len(t, calls, 1)
	assert.Equal(t, models.SessionTypeBreathing, calls[0].SessionType)
	assert.Equal(t, 1, calls[0].Duration)
	require.NotNil(t, m.Recorded())
	assert.Contains(t, m.View(), "Saved to your history.")
}

func TestBreatheModel_NoMoodSkipsRecording(t *testing.T) {
	m := NewBreatheModel(context.Background(), BreatheConfig{
		Record: func(context.Context, models.SessionProgressRequest) (models.SessionProgress, error) {
			t.Error("record called without a mood")
			return models.SessionProgress{}, nil
		},
	})
	assert.Nil(t, m.record())
}

func TestBreatheModel_RecordError(t *testing.T) {
	m := NewBreatheModel(context.Background(), BreatheConfig{})
	m, _ = step(m, recordedMsg{err: errors.New("offline")})
	assert.Contains(t, m.View(), "Could not save session: offline")
}

func TestBreatheModel_Guidance(t *testing.T) {
	m := NewBreatheModel(context.Background(), BreatheConfig{
		Session: &models.MindfulnessSession{
			Title: "Evening calm",
			Guidance: []models.GuidanceStep{
				{TimeMarker: "0:00", Text: "Settle in."},
				{TimeMarker: "0:30", Text: "Notice your breath."},
				{TimeMarker: "bad", Text: "ignored"},
			},
		},
	})
	assert.Equal(t, "Settle in.", m.guidance(10))
	assert.Equal(t, "Notice your breath.", m.guidance(31))
	assert.Contains(t, m.View(), "Evening calm")
}

func TestRenderTrend(t *testing.T) {
	sparse := RenderTrend(models.MoodTrend{Points: []models.MoodTrendPoint{{MoodScore: 3}}}, 30)
	assert.Contains(t, sparse, "Check in at least twice")

	trend := models.MoodTrend{
		EnoughData: true,
		Points: []models.MoodTrendPoint{
			{Label: "Mar 1", MoodScore: 1, MoodName: models.MoodSad},
			{Label: "Mar 2", MoodScore: 3, MoodName: models.MoodOkay},
			{Label: "Mar 3", MoodScore: 5, MoodName: models.MoodHappy},
		},
	}
	view := RenderTrend(trend, 30)
	assert.Contains(t, view, "Mar 1")
	assert.Contains(t, view, "Mar 3")
	assert.Contains(t, view, "Happy")
}
