package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/database"
	"github.com/benvon/manasmitra/internal/models"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage the origins allowed to call the API",
		Long:  "List or replace the CORS policy. Running servers pick up changes within a minute.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the stored CORS policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openConfigDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)
			return printCors(cmd.Context(), cmd.OutOrStdout(), database.NewCorsConfigRepository(db))
		},
	})
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsSetCmd() *cobra.Command {
	var (
		origins    string
		allowCreds bool
		maxAge     int
	)
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Replace the CORS policy",
		Example: "  manasmitra-configure cors set --origins https://app.example,http://localhost:3000",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := database.ParseOrigins(origins)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return errors.New("--origins is required (comma-separated list)")
			}

			db, err := openConfigDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)

			c := &models.CorsConfig{AllowedOrigins: list, AllowCredentials: allowCreds, MaxAge: maxAge}
			if err := database.NewCorsConfigRepository(db).Set(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CORS policy updated: %d origin(s).\n", len(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins, scheme://host[:port] or * (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", false, "Allow credentials on cross-origin requests")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}
