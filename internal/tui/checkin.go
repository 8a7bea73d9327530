package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/wizard"
)

const maxDetailsLength = 2000

type submittedMsg struct {
	result models.SubmittedCheckIn
	err    error
}

// CheckInModel drives a wizard.Wizard from the keyboard.
type CheckInModel struct {
	ctx      context.Context
	wizard   *wizard.Wizard
	cursor   int
	details  textinput.Model
	notice   string
	quitting bool
}

// NewCheckInModel creates the check-in screen. Submissions go to submitter.
func NewCheckInModel(ctx context.Context, submitter wizard.Submitter) CheckInModel {
	details := textinput.New()
	details.Placeholder = "Anything else on your mind? (optional)"
	details.CharLimit = maxDetailsLength
	details.Width = 60

	return CheckInModel{
		ctx:     ctx,
		wizard:  wizard.New(submitter),
		details: details,
	}
}

// State returns the wizard step shown.
func (m CheckInModel) State() wizard.State { return m.wizard.State() }

// Init implements tea.Model.
func (m CheckInModel) Init() tea.Cmd { return nil }

func (m CheckInModel) submit() tea.Cmd {
	w, ctx := m.wizard, m.ctx
	return func() tea.Msg {
		result, err := w.Submit(ctx)
		return submittedMsg{result: result, err: err}
	}
}

// Update implements tea.Model.
func (m CheckInModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		// The wizard already holds the outcome.
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		m.notice = ""
		return m.handleKey(msg)
	}
	return m, nil
}

func (m CheckInModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	state := m.wizard.State()

	if key == "q" && state != wizard.DetailsEntry {
		m.quitting = true
		return m, tea.Quit
	}

	var err error
	switch state {
	case wizard.MoodSelect:
		switch key {
		case "up", "k":
			m.cursor = wrap(m.cursor-1, len(models.Moods))
		case "down", "j":
			m.cursor = wrap(m.cursor+1, len(models.Moods))
		case "enter":
			err = m.wizard.SelectMood(models.Moods[m.cursor])
			m.cursor = 0
		}

	case wizard.FeelingsSelect:
		switch key {
		case "up", "k":
			m.cursor = wrap(m.cursor-1, len(models.Feelings))
		case "down", "j":
			m.cursor = wrap(m.cursor+1, len(models.Feelings))
		case " ", "x":
			err = m.wizard.ToggleFeeling(models.Feelings[m.cursor])
		case "enter":
			if err = m.wizard.Continue(); err == nil {
				cmd := m.details.Focus()
				return m, cmd
			}
		case "esc", "b":
			err = m.wizard.Back()
			m.cursor = 0
		}

	case wizard.DetailsEntry:
		switch key {
		case "enter":
			if err = m.wizard.SetDetails(strings.TrimSpace(m.details.Value())); err == nil {
				m.details.Blur()
				cmd := m.submit()
				return m, cmd
			}
		case "esc":
			m.details.Blur()
			err = m.wizard.Back()
		default:
			var cmd tea.Cmd
			m.details, cmd = m.details.Update(msg)
			return m, cmd
		}

	case wizard.Failed:
		switch key {
		case "r":
			if err = m.wizard.Retry(); err == nil {
				cmd := m.details.Focus()
				return m, cmd
			}
		case "a":
			err = m.wizard.Abandon()
			m.details.Reset()
			m.cursor = 0
		}

	case wizard.ResultDisplay:
		switch key {
		case "n":
			err = m.wizard.Reset()
			m.details.Reset()
			m.cursor = 0
		case "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	if err != nil && !errors.Is(err, wizard.ErrBusy) {
		m.notice = err.Error()
	}
	return m, nil
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// View implements tea.Model.
func (m CheckInModel) View() string {
	if m.quitting {
		return ""
	}

	v := m.wizard.View()
	var b strings.Builder
	b.WriteString(headerStyle.Render(" How are you feeling? ") + "\n")

	switch v.State {
	case wizard.MoodSelect:
		b.WriteString(sectionStyle.Render("Pick your mood") + "\n")
		for i, mood := range models.Moods {
			b.WriteString(m.option(i, fmt.Sprintf("%s %s", mood.Emoji(), mood), mood == v.Mood) + "\n")
		}
		b.WriteString(footer("↑/↓", "move", "enter", "choose", "q", "quit"))

	case wizard.FeelingsSelect:
		b.WriteString(labelStyle.Render("Mood: ") + valueStyle.Render(string(v.Mood)) + "\n")
		b.WriteString(sectionStyle.Render("Anything else you're feeling?") + "\n")
		for i, f := range models.Feelings {
			box := "[ ]"
			if contains(v.Feelings, f) {
				box = "[x]"
			}
			b.WriteString(m.option(i, box+" "+string(f), false) + "\n")
		}
		b.WriteString(footer("space", "toggle", "enter", "continue", "esc", "back", "q", "quit"))

	case wizard.DetailsEntry:
		b.WriteString(summary(v) + "\n")
		b.WriteString(sectionStyle.Render("Want to share more?") + "\n")
		b.WriteString(m.details.View() + "\n")
		b.WriteString(footer("enter", "submit", "esc", "back"))

	case wizard.Submitting:
		b.WriteString(summary(v) + "\n\n")
		b.WriteString(dimStyle.Render("Thinking about what you shared...") + "\n")

	case wizard.ResultDisplay:
		b.WriteString(sectionStyle.Render("Thank you for checking in") + "\n")
		if v.Result != nil {
			b.WriteString(valueStyle.Render(v.Result.Response) + "\n")
			b.WriteString(sectionStyle.Render("Something that might help") + "\n")
			b.WriteString(v.Result.Recommendation + "\n")
		}
		b.WriteString(footer("n", "new check-in", "enter", "done"))

	case wizard.Failed:
		b.WriteString(summary(v) + "\n\n")
		b.WriteString(errorStyle.Render("We couldn't send your check-in.") + "\n")
		if v.Err != nil {
			b.WriteString(dimStyle.Render(v.Err.Error()) + "\n")
		}
		b.WriteString(footer("r", "retry", "a", "start over", "q", "quit"))
	}

	if m.notice != "" {
		b.WriteString("\n" + errorStyle.Render(m.notice))
	}
	return containerStyle.Render(b.String())
}

func (m CheckInModel) option(i int, text string, chosen bool) string {
	prefix := "  "
	if i == m.cursor {
		prefix = "> "
		return selectedStyle.Render(prefix + text)
	}
	if chosen {
		return valueStyle.Render(prefix + text)
	}
	return prefix + text
}

func summary(v wizard.View) string {
	line := labelStyle.Render("Mood: ") + valueStyle.Render(string(v.Mood))
	if len(v.Feelings) > 0 {
		names := make([]string, len(v.Feelings))
		for i, f := range v.Feelings {
			names[i] = string(f)
		}
		line += labelStyle.Render("  Feelings: ") + valueStyle.Render(strings.Join(names, ", "))
	}
	return line
}

func contains(list []models.Feeling, f models.Feeling) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}
