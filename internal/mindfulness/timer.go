// Package mindfulness holds the session timer, breathing phase calculator,
// session statistics and the built-in session script.
package mindfulness

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// TimerState is a point-in-time view of a Timer.
type TimerState struct {
	CurrentTime int     `json:"currentTime"`
	Total       int     `json:"total"`
	Progress    float64 `json:"progress"`
	IsPlaying   bool    `json:"isPlaying"`
	Completed   bool    `json:"completed"`
}

// Timer is a wall-clock countdown for a mindfulness session. Elapsed time is
// derived from the captured start instant on every sample, so missed or late
// ticks never cause drift.
type Timer struct {
	mu        sync.Mutex
	clock     Clock
	total     int
	startedAt time.Time
	current   int
	playing   bool
	completed bool
}

// NewTimer creates a timer for a session of the given length. Lengths are
// truncated to whole seconds.
func NewTimer(total time.Duration, clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock
	}
	return &Timer{clock: clock, total: int(total / time.Second)}
}

// Start begins or resumes the session. Resuming continues from the whole
// second frozen by Pause. Starting a playing timer is a no-op, and so is
// starting a completed one: a finished session stays at 100% until Stop or
// Reset, so a stray start cannot record it twice.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing || t.completed {
		return
	}
	t.startedAt = t.clock.Now().Add(-time.Duration(t.current) * time.Second)
	t.playing = true
}

// Pause freezes the current whole-second position.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.playing {
		return
	}
	t.sampleLocked()
	t.playing = false
}

// Stop halts the session and zeroes it.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.playing = false
	t.completed = false
	t.current = 0
	t.startedAt = time.Time{}
}

// Reset is equivalent to Stop.
func (t *Timer) Reset() {
	t.Stop()
}

// Tick samples the clock and returns the resulting state. Reaching the total
// duration stops the timer.
func (t *Timer) Tick() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		t.sampleLocked()
	}
	return t.stateLocked()
}

// Snapshot returns the current state without sampling the clock.
func (t *Timer) Snapshot() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) sampleLocked() {
	elapsed := int(t.clock.Now().Sub(t.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= t.total {
		t.current = t.total
		t.playing = false
		t.completed = true
		return
	}
	t.current = elapsed
}

func (t *Timer) stateLocked() TimerState {
	var progress float64
	if t.total > 0 {
		progress = float64(t.current) / float64(t.total) * 100
	}
	return TimerState{
		CurrentTime: t.current,
		Total:       t.total,
		Progress:    progress,
		IsPlaying:   t.playing,
		Completed:   t.completed,
	}
}
