package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/config"
	"github.com/benvon/manasmitra/internal/queue"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/store"
)

const checkTimeout = 30 * time.Second

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var withAI bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test backend connectivity",
		Long:  "Check that the profile store, the job queue and optionally the generation provider are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()
			out := cmd.OutOrStdout()

			if err := checkStore(ctx, out, cfg); err != nil {
				return err
			}
			if err := checkQueue(ctx, out, cfg); err != nil {
				return err
			}
			if withAI {
				if err := checkGeneration(ctx, out, cfg); err != nil {
					return err
				}
			}

			fmt.Fprintln(out, "\n✓ Backend test passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withAI, "ai", false, "Also request one affirmation from the generation provider")

	return cmd
}

func checkStore(ctx context.Context, out io.Writer, cfg *config.Config) error {
	fmt.Fprintf(out, "Testing %s profile store\n", cfg.StoreDriver)
	st, closeStore, err := store.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = closeStore() }()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	fmt.Fprintln(out, "✓ Profile store is reachable")
	return nil
}

func checkQueue(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if cfg.RabbitMQURL == "" {
		fmt.Fprintln(out, "- RabbitMQ not configured, skipping")
		return nil
	}
	fmt.Fprintln(out, "Testing RabbitMQ")
	q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()
	if err := q.HealthCheck(ctx); err != nil {
		return fmt.Errorf("rabbitmq health: %w", err)
	}
	fmt.Fprintln(out, "✓ RabbitMQ is reachable")
	return nil
}

func checkGeneration(ctx context.Context, out io.Writer, cfg *config.Config) error {
	fmt.Fprintf(out, "Testing %s generation provider (%s)\n", cfg.AIProvider, cfg.AIModel)
	client, err := ai.NewClientFromConfig(cfg, zap.NewNop(), false)
	if err != nil {
		return err
	}
	got, err := client.Affirmation(ctx, ai.AffirmationInput{})
	if err != nil {
		return fmt.Errorf("generate affirmation: %w", err)
	}
	if got.Affirmation == ai.FallbackAffirmation {
		return fmt.Errorf("provider unavailable: only the fallback affirmation was returned")
	}
	fmt.Fprintln(out, "✓ Generation provider answered")
	return nil
}
