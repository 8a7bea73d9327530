package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/tui"
)

func newCheckInCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Log how you are feeling",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			model := tui.NewCheckInModel(cmd.Context(), client)
			if _, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run(); err != nil {
				return fmt.Errorf("check-in screen: %w", err)
			}
			return nil
		},
	}
}
