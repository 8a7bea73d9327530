package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/tui"
)

func newTrendCmd(opts *options) *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show your mood trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			trend, err := client.Trend(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch trend: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTrend(trend, width))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 40, "Chart width in columns")
	return cmd
}
