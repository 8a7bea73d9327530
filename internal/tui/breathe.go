package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/benvon/manasmitra/internal/mindfulness"
	"github.com/benvon/manasmitra/internal/models"
)

const (
	breatheTick   = time.Second
	breathBarMax  = 40
	progressWidth = 40
)

// RecordFunc stores a completed session.
type RecordFunc func(ctx context.Context, req models.SessionProgressRequest) (models.SessionProgress, error)

// BreatheConfig describes one breathing session.
type BreatheConfig struct {
	Duration    int // minutes
	Pattern     mindfulness.BreathingPattern
	SessionType models.SessionType
	Mood        models.Mood
	Session     *models.MindfulnessSession
	Clock       mindfulness.Clock
	// Record is called once on natural completion. nil skips recording.
	Record RecordFunc
}

type breatheTickMsg time.Time

type recordedMsg struct {
	progress models.SessionProgress
	err      error
}

// BreatheModel is a paced breathing session with a progress bar.
type BreatheModel struct {
	ctx       context.Context
	cfg       BreatheConfig
	timer     *mindfulness.Timer
	bar       progress.Model
	recording bool
	recorded  *models.SessionProgress
	err       error
	quitting  bool
}

// NewBreatheModel creates a session screen. The timer starts paused.
func NewBreatheModel(ctx context.Context, cfg BreatheConfig) BreatheModel {
	if cfg.Duration <= 0 {
		cfg.Duration = models.DefaultSessionDuration
	}
	if cfg.Pattern.Cycle() <= 0 {
		cfg.Pattern = mindfulness.DefaultPattern
	}
	if cfg.SessionType == "" {
		cfg.SessionType = models.SessionTypeBreathing
	}
	return BreatheModel{
		ctx:   ctx,
		cfg:   cfg,
		timer: mindfulness.NewTimer(time.Duration(cfg.Duration)*time.Minute, cfg.Clock),
		bar: progress.New(
			progress.WithGradient("#5fafff", "#afffaf"),
			progress.WithWidth(progressWidth),
		),
	}
}

// Snapshot returns the timer state.
func (m BreatheModel) Snapshot() mindfulness.TimerState { return m.timer.Snapshot() }

// Recorded returns the stored session after completion, if any.
func (m BreatheModel) Recorded() *models.SessionProgress { return m.recorded }

func breatheTickCmd() tea.Cmd {
	return tea.Tick(breatheTick, func(t time.Time) tea.Msg {
		return breatheTickMsg(t)
	})
}

// Init implements tea.Model.
func (m BreatheModel) Init() tea.Cmd { return breatheTickCmd() }

func (m BreatheModel) record() tea.Cmd {
	if m.cfg.Record == nil || m.cfg.Mood == "" {
		return nil
	}
	ctx, record := m.ctx, m.cfg.Record
	req := models.SessionProgressRequest{
		Duration:    m.cfg.Duration,
		Mood:        m.cfg.Mood,
		SessionType: m.cfg.SessionType,
	}
	return func() tea.Msg {
		p, err := record(ctx, req)
		return recordedMsg{progress: p, err: err}
	}
}

// Update implements tea.Model.
func (m BreatheModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case " ", "p":
			if m.timer.Snapshot().IsPlaying {
				m.timer.Pause()
			} else {
				m.timer.Start()
			}
		case "s":
			m.timer.Stop()
		case "r":
			m.timer.Reset()
			m.recorded, m.err, m.recording = nil, nil, false
		}
		return m, nil

	case breatheTickMsg:
		before := m.timer.Snapshot()
		after := m.timer.Tick()
		if !before.Completed && after.Completed && !m.recording {
			m.recording = true
			return m, tea.Batch(breatheTickCmd(), m.record())
		}
		return m, breatheTickCmd()

	case recordedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		p := msg.progress
		m.recorded = &p
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m BreatheModel) View() string {
	if m.quitting {
		return ""
	}

	s := m.timer.Snapshot()
	var b strings.Builder

	title := "Breathing"
	if m.cfg.Session != nil && m.cfg.Session.Title != "" {
		title = m.cfg.Session.Title
	}
	b.WriteString(headerStyle.Render(" "+title+" ") + "\n")

	switch {
	case s.Completed:
		b.WriteString("\n" + selectedStyle.Render("Session complete. Well done.") + "\n")
	case s.IsPlaying:
		breath := m.cfg.Pattern.PhaseAt(time.Duration(s.CurrentTime) * time.Second)
		b.WriteString("\n" + valueStyle.Render(breath.Label) + "\n")
		b.WriteString(sparklineStyle.Render(breathBar(breath.Scale)) + "\n")
	default:
		b.WriteString("\n" + dimStyle.Render("Press space to begin.") + "\n")
	}

	if g := m.guidance(s.CurrentTime); g != "" && !s.Completed {
		b.WriteString(dimStyle.Render(g) + "\n")
	}

	b.WriteString("\n" + m.bar.ViewAs(s.Progress/100) + "\n")
	b.WriteString(labelStyle.Render("  Remaining: ") +
		valueStyle.Render(mindfulness.FormatTime(s.Total-s.CurrentTime)) +
		dimStyle.Render(fmt.Sprintf("  of %s", mindfulness.FormatTime(s.Total))) + "\n")

	if m.recorded != nil {
		b.WriteString(dimStyle.Render("Saved to your history.") + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Could not save session: "+m.err.Error()) + "\n")
	}

	b.WriteString(footer("space", "start/pause", "s", "stop", "r", "reset", "q", "quit"))
	return containerStyle.Render(b.String())
}

// guidance returns the latest guidance step whose time marker has passed.
func (m BreatheModel) guidance(elapsed int) string {
	if m.cfg.Session == nil {
		return ""
	}
	var text string
	for _, step := range m.cfg.Session.Guidance {
		at, ok := parseMarker(step.TimeMarker)
		if !ok || at > elapsed {
			continue
		}
		text = step.Text
	}
	return text
}

// parseMarker reads "m:ss" into seconds.
func parseMarker(s string) (int, bool) {
	var mins, secs int
	if _, err := fmt.Sscanf(s, "%d:%d", &mins, &secs); err != nil {
		return 0, false
	}
	return mins*60 + secs, true
}

// breathBar maps a breathing scale of 1.0..1.8 onto a bar width.
func breathBar(scale float64) string {
	n := int((scale - 1.0) / 0.8 * breathBarMax)
	if n < 1 {
		n = 1
	}
	if n > breathBarMax {
		n = breathBarMax
	}
	return strings.Repeat("●", n)
}
