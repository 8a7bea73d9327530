package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DialPolicy bounds how long Connect waits for the broker to come up.
type DialPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultDialPolicy rides out a broker container that starts alongside us.
var DefaultDialPolicy = DialPolicy{Attempts: 10, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

// delay returns the wait after the given zero-based failed attempt.
func (p DialPolicy) delay(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Connect dials RabbitMQ, doubling the wait between failed attempts.
func Connect(ctx context.Context, amqpURL string, policy DialPolicy, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return connect(ctx, policy, logger, func() (*RabbitMQQueue, error) {
		return NewRabbitMQQueue(amqpURL, logger)
	})
}

func connect(ctx context.Context, policy DialPolicy, logger *zap.Logger, dial func() (*RabbitMQQueue, error)) (*RabbitMQQueue, error) {
	attempts := max(policy.Attempts, 1)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		q, err := dial()
		if err == nil {
			logger.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return q, nil
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}

		wait := policy.delay(attempt)
		logger.Warn("rabbitmq_dial_failed_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq dial interrupted: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("rabbitmq unreachable after %d attempts: %w", attempts, lastErr)
}
