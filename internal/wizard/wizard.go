// Package wizard drives the check-in flow as a state machine independent of
// any rendering.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/manasmitra/internal/models"
)

// State is a wizard step.
type State int

const (
	MoodSelect State = iota
	FeelingsSelect
	DetailsEntry
	Submitting
	ResultDisplay
	Failed
)

func (s State) String() string {
	switch s {
	case MoodSelect:
		return "mood_select"
	case FeelingsSelect:
		return "feelings_select"
	case DetailsEntry:
		return "details_entry"
	case Submitting:
		return "submitting"
	case ResultDisplay:
		return "result_display"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("submission already in progress")

// TransitionError reports an operation that is not allowed in the current state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// Submitter sends a completed check-in for a response.
type Submitter interface {
	Submit(ctx context.Context, req models.CheckInRequest) (models.SubmittedCheckIn, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req models.CheckInRequest) (models.SubmittedCheckIn, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, req models.CheckInRequest) (models.SubmittedCheckIn, error) {
	return f(ctx, req)
}

// View is a copy of the wizard's data for rendering.
type View struct {
	State    State
	Mood     models.Mood
	Feelings []models.Feeling
	Details  string
	Result   *models.SubmittedCheckIn
	Err      error
}

// Wizard is safe for concurrent use.
type Wizard struct {
	mu        sync.Mutex
	submitter Submitter
	state     State
	mood      models.Mood
	feelings  []models.Feeling
	details   string
	result    *models.SubmittedCheckIn
	err       error
}

// New returns a wizard at MoodSelect.
func New(submitter Submitter) *Wizard {
	return &Wizard{submitter: submitter, state: MoodSelect}
}

// View returns the current state and data.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return View{
		State:    w.state,
		Mood:     w.mood,
		Feelings: append([]models.Feeling(nil), w.feelings...),
		Details:  w.details,
		Result:   w.result,
		Err:      w.err,
	}
}

// State returns the current step.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Wizard) require(op string, allowed ...State) error {
	for _, s := range allowed {
		if w.state == s {
			return nil
		}
	}
	if w.state == Submitting {
		return ErrBusy
	}
	return &TransitionError{Op: op, State: w.state}
}

// SelectMood records the mood and advances to FeelingsSelect.
func (w *Wizard) SelectMood(m models.Mood) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("select mood", MoodSelect); err != nil {
		return err
	}
	if !m.Valid() {
		return fmt.Errorf("invalid mood: %s", m)
	}
	w.mood = m
	w.state = FeelingsSelect
	return nil
}

// ToggleFeeling adds f if absent and removes it if present.
func (w *Wizard) ToggleFeeling(f models.Feeling) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("toggle feeling", FeelingsSelect); err != nil {
		return err
	}
	if !f.Valid() {
		return fmt.Errorf("invalid feeling: %s", f)
	}
	for i, existing := range w.feelings {
		if existing == f {
			w.feelings = append(w.feelings[:i], w.feelings[i+1:]...)
			return nil
		}
	}
	w.feelings = append(w.feelings, f)
	return nil
}

// Continue leaves FeelingsSelect for DetailsEntry.
func (w *Wizard) Continue() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("continue", FeelingsSelect); err != nil {
		return err
	}
	w.state = DetailsEntry
	return nil
}

// Back moves one step back from FeelingsSelect or DetailsEntry. Entered data is kept.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("back", FeelingsSelect, DetailsEntry); err != nil {
		return err
	}
	if w.state == FeelingsSelect {
		w.state = MoodSelect
	} else {
		w.state = FeelingsSelect
	}
	return nil
}

// SetDetails replaces the free-text details.
func (w *Wizard) SetDetails(details string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("set details", DetailsEntry); err != nil {
		return err
	}
	w.details = details
	return nil
}

// Submit sends the check-in and blocks until the submitter returns. The
// wizard ends in ResultDisplay on success and Failed otherwise.
func (w *Wizard) Submit(ctx context.Context) (models.SubmittedCheckIn, error) {
	w.mu.Lock()
	if err := w.require("submit", DetailsEntry); err != nil {
		w.mu.Unlock()
		return models.SubmittedCheckIn{}, err
	}
	req := models.CheckInRequest{
		Mood:     w.mood,
		Feelings: append([]models.Feeling{}, w.feelings...),
		Details:  w.details,
	}
	w.state = Submitting
	w.err = nil
	w.mu.Unlock()

	result, err := w.submitter.Submit(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = Failed
		w.err = err
		return models.SubmittedCheckIn{}, err
	}
	w.state = ResultDisplay
	w.result = &result
	return result, nil
}

// Retry returns from Failed to DetailsEntry with the entered data intact.
func (w *Wizard) Retry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("retry", Failed); err != nil {
		return err
	}
	w.err = nil
	w.state = DetailsEntry
	return nil
}

// Abandon discards a failed check-in and starts over.
func (w *Wizard) Abandon() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("abandon", Failed); err != nil {
		return err
	}
	w.clear()
	return nil
}

// Reset starts a new check-in after a result has been shown. The stored
// check-in is unaffected.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("reset", ResultDisplay); err != nil {
		return err
	}
	w.clear()
	return nil
}

func (w *Wizard) clear() {
	w.state = MoodSelect
	w.mood = ""
	w.feelings = nil
	w.details = ""
	w.result = nil
	w.err = nil
}
