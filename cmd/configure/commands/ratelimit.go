package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/database"
	"github.com/benvon/manasmitra/internal/models"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage per-scope request rates",
		Long: "List or update request rates (e.g. 5-S, 100-M, 1000-H). Each API route group is\n" +
			"limited under its own scope; scopes without a rate use the default scope.\n" +
			"Scopes: " + strings.Join(models.RateLimitScopes, ", "),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the rate in force for every scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openConfigDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)
			return printRatelimit(cmd.Context(), cmd.OutOrStdout(), database.NewRatelimitConfigRepository(db))
		},
	})
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitSetCmd() *cobra.Command {
	var rate, scope string
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Set the rate for one scope",
		Example: "  manasmitra-configure ratelimit set --scope affirmation --rate 30-H",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(rate) == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}

			db, err := openConfigDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)

			c := &models.RatelimitConfig{Scope: scope, Rate: rate}
			if err := database.NewRatelimitConfigRepository(db).Set(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate for %s set to %s.\n", scope, strings.TrimSpace(rate))
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	cmd.Flags().StringVar(&scope, "scope", models.RateLimitScopeDefault, "Scope: "+strings.Join(models.RateLimitScopes, ", "))
	return cmd
}
