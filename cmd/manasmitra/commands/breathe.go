package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/mindfulness"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/tui"
)

func newBreatheCmd(opts *options) *cobra.Command {
	var (
		duration    int
		pattern     string
		sessionType string
		mood        string
		experience  string
		guided      bool
		offline     bool
	)

	cmd := &cobra.Command{
		Use:   "breathe",
		Short: "Start a guided breathing session",
		Long:  "Run a paced breathing session. Sessions finished with --mood set are saved to your history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration < 1 || duration > 30 {
				return fmt.Errorf("--duration must be between 1 and 30 minutes")
			}
			p, err := mindfulness.ParsePattern(pattern)
			if err != nil {
				return err
			}
			st := models.SessionType(sessionType)
			if !st.Valid() {
				return fmt.Errorf("unknown session type %q", sessionType)
			}
			m := models.Mood(mood)
			if m != "" && !m.Valid() {
				return fmt.Errorf("unknown mood %q", mood)
			}

			cfg := tui.BreatheConfig{Duration: duration, Pattern: p, SessionType: st, Mood: m}

			if !offline {
				client, err := opts.client()
				if err != nil {
					return err
				}
				cfg.Record = client.RecordSession
				if guided {
					moodText := string(m)
					if moodText == "" {
						moodText = string(models.MoodOkay)
					}
					session, err := client.CreateSession(cmd.Context(), ai.MindfulnessSessionInput{
						Mood:        moodText,
						SessionType: st,
						Duration:    duration,
						Experience:  models.Experience(experience),
					})
					if err != nil {
						return fmt.Errorf("fetch session: %w", err)
					}
					cfg.Session = &session
				}
			} else if guided {
				session := mindfulness.DefaultSession(st, duration)
				cfg.Session = &session
			}

			model := tui.NewBreatheModel(cmd.Context(), cfg)
			if _, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run(); err != nil {
				return fmt.Errorf("breathing screen: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&duration, "duration", models.DefaultSessionDuration, "Length in minutes (1-30)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Breathing pattern inhale-hold-exhale-pause in seconds (default 4-2-6-1)")
	cmd.Flags().StringVar(&sessionType, "type", string(models.SessionTypeBreathing), "Session type (breathing, meditation, body-scan, mindful-moment)")
	cmd.Flags().StringVar(&mood, "mood", "", "Your mood before the session; required to save it")
	cmd.Flags().StringVar(&experience, "experience", "", "beginner, intermediate or advanced")
	cmd.Flags().BoolVar(&guided, "guided", false, "Fetch a personalized script with timed guidance")
	cmd.Flags().BoolVar(&offline, "offline", false, "Run without the server; nothing is saved")
	return cmd
}
