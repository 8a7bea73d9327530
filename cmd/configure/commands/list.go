package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/config"
	"github.com/benvon/manasmitra/internal/database"
	"github.com/benvon/manasmitra/internal/models"
)

// openConfigDB loads configuration and connects to the settings database,
// creating its tables if needed.
func openConfigDB(ctx context.Context) (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	driver, dsn := cfg.ConfigDatabaseURL()
	db, err := database.New(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored settings",
		Long:  "Print the CORS and rate limit settings the API server hot-reloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openConfigDB(ctx)
			if err != nil {
				return err
			}
			defer closeDB(db)

			out := cmd.OutOrStdout()
			if err := printCors(ctx, out, database.NewCorsConfigRepository(db)); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return printRatelimit(ctx, out, database.NewRatelimitConfigRepository(db))
		},
	}
}

func printCors(ctx context.Context, out io.Writer, repo database.CorsConfigStore) error {
	c, err := repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("get cors config: %w", err)
	}
	if c == nil {
		fmt.Fprintln(out, "No CORS policy stored; servers allow FRONTEND_URL only. Use 'cors set' to add one.")
		return nil
	}
	fmt.Fprintln(out, "CORS policy:")
	fmt.Fprintf(out, "  Allowed origins: %s\n", strings.Join(c.AllowedOrigins, ","))
	fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
	fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
	fmt.Fprintf(out, "  Updated: %s\n", c.UpdatedAt.UTC().Format(time.RFC3339))
	return nil
}

// printRatelimit shows every scope, marking those that inherit the default.
func printRatelimit(ctx context.Context, out io.Writer, repo database.RatelimitConfigStore) error {
	rows, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No rate limits stored; servers use their built-in default. Use 'ratelimit set' to add one.")
		return nil
	}

	stored := make(map[string]string, len(rows))
	for _, row := range rows {
		stored[row.Scope] = row.Rate
	}

	fmt.Fprintln(out, "Rate limits:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, scope := range models.RateLimitScopes {
		rate, ok := stored[scope]
		switch {
		case ok:
			fmt.Fprintf(tw, "  %s\t%s\n", scope, rate)
		case stored[models.RateLimitScopeDefault] != "":
			fmt.Fprintf(tw, "  %s\t%s\t(default)\n", scope, stored[models.RateLimitScopeDefault])
		default:
			fmt.Fprintf(tw, "  %s\t-\t(built-in default)\n", scope)
		}
	}
	return tw.Flush()
}
