package mindfulness

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Phase is one segment of a breathing cycle
type Phase string

const (
	PhaseInhale Phase = "inhale"
	PhaseHold   Phase = "hold"
	PhaseExhale Phase = "exhale"
	PhasePause  Phase = "pause"
)

// Label returns the cue shown to the user for the phase.
func (p Phase) Label() string {
	switch p {
	case PhaseInhale:
		return "Breathe In"
	case PhaseHold:
		return "Hold"
	case PhaseExhale:
		return "Breathe Out"
	case PhasePause:
		return "Pause"
	default:
		return ""
	}
}

const (
	minScale = 1.0
	maxScale = 1.8
)

// BreathingPattern is the length of each phase in seconds.
type BreathingPattern struct {
	Inhale float64 `json:"inhale"`
	Hold   float64 `json:"hold"`
	Exhale float64 `json:"exhale"`
	Pause  float64 `json:"pause"`
}

// DefaultPattern is 4-2-6-1.
var DefaultPattern = BreathingPattern{Inhale: 4, Hold: 2, Exhale: 6, Pause: 1}

// Cycle returns the length of one full cycle in seconds.
func (p BreathingPattern) Cycle() float64 {
	return p.Inhale + p.Hold + p.Exhale + p.Pause
}

// ParsePattern parses "4-2-6-1" (inhale-hold-exhale-pause). An empty string
// yields DefaultPattern.
func ParsePattern(s string) (BreathingPattern, error) {
	if s == "" {
		return DefaultPattern, nil
	}
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return BreathingPattern{}, fmt.Errorf("invalid breathing pattern %q: want inhale-hold-exhale-pause", s)
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || v > 60 {
			return BreathingPattern{}, fmt.Errorf("invalid breathing pattern %q: segment %q", s, part)
		}
		vals[i] = v
	}
	p := BreathingPattern{Inhale: vals[0], Hold: vals[1], Exhale: vals[2], Pause: vals[3]}
	if p.Inhale == 0 || p.Exhale == 0 {
		return BreathingPattern{}, fmt.Errorf("invalid breathing pattern %q: inhale and exhale must be positive", s)
	}
	return p, nil
}

// PhaseState is the breathing visual at one instant.
type PhaseState struct {
	Phase     Phase   `json:"phase"`
	Label     string  `json:"label"`
	Scale     float64 `json:"scale"`
	CycleTime float64 `json:"cycleTime"`
}

// PhaseAt computes the phase and circle scale for a time since the session
// started. The scale ramps 1.0 to 1.8 on inhale, holds, ramps back on exhale
// and rests at 1.0 during pause.
func (p BreathingPattern) PhaseAt(elapsed time.Duration) PhaseState {
	cycle := p.Cycle()
	if cycle <= 0 {
		return PhaseState{Phase: PhaseInhale, Label: PhaseInhale.Label(), Scale: minScale}
	}

	t := math.Mod(elapsed.Seconds(), cycle)
	if t < 0 {
		t += cycle
	}

	var phase Phase
	scale := minScale
	switch {
	case t < p.Inhale:
		phase = PhaseInhale
		scale = minScale + (t/p.Inhale)*(maxScale-minScale)
	case t < p.Inhale+p.Hold:
		phase = PhaseHold
		scale = maxScale
	case t < p.Inhale+p.Hold+p.Exhale:
		phase = PhaseExhale
		progress := (t - p.Inhale - p.Hold) / p.Exhale
		scale = maxScale - progress*(maxScale-minScale)
	default:
		phase = PhasePause
	}

	return PhaseState{Phase: phase, Label: phase.Label(), Scale: scale, CycleTime: t}
}
