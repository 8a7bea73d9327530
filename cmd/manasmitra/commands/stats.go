package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your mindfulness practice summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			s, err := client.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch stats: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sessions: %d total, %d this week, %d this month\n", s.TotalSessions, s.WeekSessions, s.MonthSessions)
			fmt.Fprintf(out, "Minutes:  %d total, %d this week\n", s.TotalMinutes, s.WeekMinutes)
			if s.FavoriteType != "" {
				fmt.Fprintf(out, "Favorite: %s\n", s.FavoriteType)
			}
			return nil
		},
	}
}
