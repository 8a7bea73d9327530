package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/models"
)

func newAffirmationCmd(opts *options) *cobra.Command {
	var mood string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "affirmation",
		Short: "Show today's affirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := models.Mood(mood)
			if m != "" && !m.Valid() {
				return fmt.Errorf("unknown mood %q", mood)
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			a, err := client.Affirmation(cmd.Context(), m, refresh)
			if err != nil {
				return fmt.Errorf("fetch affirmation: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.Affirmation)
			return nil
		},
	}

	cmd.Flags().StringVar(&mood, "mood", "", "Tailor to a mood (Happy, Okay, Sad, Anxious, Angry)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ask for a new one instead of today's")
	return cmd
}
