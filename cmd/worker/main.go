package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benvon/manasmitra/internal/config"
	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/queue"
	"github.com/benvon/manasmitra/internal/services/ai"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/telemetry"
	"github.com/benvon/manasmitra/internal/workers"
)

const (
	serviceName       = "manasmitra-worker"
	dlqSweepInterval  = time.Hour
	dlqSweepRetention = 24 * time.Hour
)

// errDeliveriesClosed ends the worker when the broker drops its consumer;
// the supervisor restarts us with a fresh channel.
var errDeliveriesClosed = errors.New("delivery channel closed")

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, zapLogger, debugMode)
	stop()
	if err != nil {
		zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		_ = logger.Sync(zapLogger)
		os.Exit(1)
	}
	zapLogger.Info("worker_stopped")
	_ = logger.Sync(zapLogger)
}

func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger, debugMode bool) error {
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required for the worker")
	}
	if cfg.StoreDriver == config.StoreDriverMemory {
		zapLogger.Warn("worker_memory_store",
			zap.String("hint", "affirmations written by the worker are not visible to the server; set STORE_DRIVER"))
	}

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg, serviceName)
	if err != nil {
		zapLogger.Warn("otel_tracer_not_initialized", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	st, closeStore, err := store.Open(ctx, cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			zapLogger.Warn("failed_to_close_store", zap.Error(err))
		}
	}()

	jobQueue, err := queue.Connect(ctx, cfg.RabbitMQURL, queue.DefaultDialPolicy, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	generator, err := ai.NewClientFromConfig(cfg, zapLogger, debugMode)
	if err != nil {
		return fmt.Errorf("create ai client: %w", err)
	}
	refresher := workers.NewAffirmationRefresher(generator, st, jobQueue, zapLogger)
	sweeper := queue.NewDeadLetterSweeper(jobQueue, dlqSweepInterval, dlqSweepRetention, zapLogger)

	msgs, queueErrs, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	zapLogger.Info("worker_consuming", zap.String("queue", queue.DefaultTopology.Queue))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case err, ok := <-queueErrs:
				if ok && err != nil {
					return fmt.Errorf("consume: %w", err)
				}
				queueErrs = nil
			case msg, ok := <-msgs:
				if !ok {
					return errDeliveriesClosed
				}
				if err := refresher.ProcessJob(gctx, msg); err != nil {
					zapLogger.Error("job_failed",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		// Signal-driven shutdown.
		return nil
	}
	return err
}
