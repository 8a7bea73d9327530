package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the settings database tables.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create database tables",
		Long:  "Create the profile store and settings tables in the configured database. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openConfigDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database.\n", db.Driver)
			return nil
		},
	}
}
