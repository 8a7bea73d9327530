package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Topology names the exchanges and queues affirmation jobs flow through.
// Jobs are routed by their JobType; rejected jobs dead-letter with
// routingKeyDeadLetter.
type Topology struct {
	Exchange        string
	DelayedExchange string // needs the rabbitmq_delayed_message_exchange plugin
	Queue           string
	DeadLetterQueue string
}

// DefaultTopology is shared by the API server and the worker.
var DefaultTopology = Topology{
	Exchange:        "manasmitra_jobs",
	DelayedExchange: "manasmitra_jobs_delayed",
	Queue:           "manasmitra_affirmation_jobs",
	DeadLetterQueue: "manasmitra_affirmation_jobs_dlq",
}

const routingKeyDeadLetter = "dead_letter"

// routedJobTypes are bound to the work queue. Anything else is unroutable.
var routedJobTypes = []JobType{JobTypeAffirmationRefresh}

// RabbitMQQueue implements JobQueue using RabbitMQ.
type RabbitMQQueue struct {
	conn     *amqp.Connection
	mu       sync.Mutex // guards channel; publish and DLQ sweeps share it
	channel  *amqp.Channel
	topology Topology
	delayed  bool
	logger   *zap.Logger
}

// NewRabbitMQQueue dials RabbitMQ and declares DefaultTopology.
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{conn: conn, channel: ch, topology: DefaultTopology, logger: logger}
	if err := q.declare(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare topology: %w", err)
	}
	return q, nil
}

func (q *RabbitMQQueue) declare() error {
	t := q.topology

	// A refused x-delayed-message declare closes the channel, so reopen and
	// fall back to publishing NotBefore jobs immediately.
	err := q.channel.ExchangeDeclare(t.DelayedExchange, "x-delayed-message", true, false, false, false,
		amqp.Table{"x-delayed-type": "direct"})
	if err != nil {
		q.logger.Warn("delayed_exchange_unavailable", zap.Error(err))
		if q.channel.IsClosed() {
			if q.channel, err = q.conn.Channel(); err != nil {
				return fmt.Errorf("reopen channel: %w", err)
			}
		}
	} else {
		q.delayed = true
	}

	if err := q.channel.ExchangeDeclare(t.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange %s: %w", t.Exchange, err)
	}

	if _, err := q.channel.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue %s: %w", t.DeadLetterQueue, err)
	}
	if err := q.channel.QueueBind(t.DeadLetterQueue, routingKeyDeadLetter, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", t.DeadLetterQueue, err)
	}

	if _, err := q.channel.QueueDeclare(t.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    t.Exchange,
		"x-dead-letter-routing-key": routingKeyDeadLetter,
	}); err != nil {
		return fmt.Errorf("queue %s: %w", t.Queue, err)
	}

	exchanges := []string{t.Exchange}
	if q.delayed {
		exchanges = append(exchanges, t.DelayedExchange)
	}
	for _, exchange := range exchanges {
		for _, jobType := range routedJobTypes {
			if err := q.channel.QueueBind(t.Queue, string(jobType), exchange, false, nil); err != nil {
				return fmt.Errorf("bind %s to %s: %w", t.Queue, exchange, err)
			}
		}
	}
	return nil
}

// publishing encodes job for the broker and picks its exchange. A future
// NotBefore goes through the delayed exchange when the plugin is present,
// and NotAfter becomes a per-message TTL so stale refreshes dead-letter.
func (t Topology) publishing(job *Job, delayed bool, now time.Time) (string, amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", amqp.Publishing{}, fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
		Type:         string(job.Type),
		Headers:      amqp.Table{"retry_count": int32(job.RetryCount)},
		Body:         body,
	}

	if job.NotAfter != nil {
		if ttl := job.NotAfter.Sub(now); ttl > 0 {
			pub.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}

	exchange := t.Exchange
	if delayed && job.NotBefore != nil {
		if wait := job.NotBefore.Sub(now); wait > 0 {
			pub.Headers["x-delay"] = wait.Milliseconds()
			exchange = t.DelayedExchange
		}
	}
	return exchange, pub, nil
}

// Enqueue publishes job, routed by its type.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	exchange, pub, err := q.topology.publishing(job, q.delayed, time.Now())
	if err != nil {
		return err
	}

	q.mu.Lock()
	err = q.channel.PublishWithContext(ctx, exchange, string(job.Type), false, false, pub)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}

	q.logger.Debug("job_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("exchange", exchange),
		zap.Int("retry_count", job.RetryCount),
	)
	return nil
}

// deliveryAction is what the consumer does with a delivery before any
// handler sees it.
type deliveryAction int

const (
	actionDeliver    deliveryAction = iota
	actionDeadLetter                // undecodable or unusable; nack without requeue
	actionDrop                      // expired; ack silently
	actionRequeue                   // NotBefore not reached and no delayed exchange
)

// classify decodes a delivery body and decides its fate at time now.
func classify(body []byte, now time.Time) (*Job, deliveryAction, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, actionDeadLetter, fmt.Errorf("decode job: %w", err)
	}
	if job.ProfileID == "" {
		return &job, actionDeadLetter, errMissingProfile
	}
	switch {
	case job.NotAfter != nil && now.After(*job.NotAfter):
		return &job, actionDrop, nil
	case job.NotBefore != nil && now.Before(*job.NotBefore):
		return &job, actionRequeue, nil
	}
	return &job, actionDeliver, nil
}

var errMissingProfile = errors.New("job has no profile_id")

// Consume delivers jobs on their own channel so acks never race publishes.
// prefetchCount bounds unacknowledged jobs held by this consumer. Both
// returned channels close when ctx ends or the broker drops the consumer.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set prefetch: %w", err)
	}
	deliveries, err := ch.Consume(q.topology.Queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", q.topology.Queue, err)
	}

	msgs := make(chan *Message, prefetchCount)
	errs := make(chan error, 1)

	go func() {
		defer close(msgs)
		defer close(errs)
		defer func() { _ = ch.Close() }()

		for {
			var d amqp.Delivery
			var ok bool
			select {
			case <-ctx.Done():
				return
			case d, ok = <-deliveries:
			}
			if !ok {
				errs <- errors.New("delivery channel closed")
				return
			}

			job, action, err := classify(d.Body, time.Now())
			switch action {
			case actionDeadLetter:
				q.logger.Warn("job_dead_lettered", zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			case actionDrop:
				q.logger.Debug("job_expired_dropped", zap.String("job_id", job.ID.String()))
				_ = d.Ack(false)
				continue
			case actionRequeue:
				_ = d.Nack(false, true)
				continue
			}

			select {
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			case msgs <- &Message{Job: job, DeliveryTag: d.DeliveryTag, Channel: ch}:
			}
		}
	}()

	return msgs, errs, nil
}

// HealthCheck reports whether the connection and publish channel are open.
func (q *RabbitMQQueue) HealthCheck(_ context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// PurgeOlderThan scans the dead-letter queue once. Jobs published before the
// retention cutoff are acked away; the rest are requeued after the scan so
// none is read twice.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, err := q.channel.QueueDeclarePassive(q.topology.DeadLetterQueue, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("inspect %s: %w", q.topology.DeadLetterQueue, err)
	}

	cutoff := time.Now().Add(-retention)
	purged := 0
	var keep []uint64
	defer func() {
		for _, tag := range keep {
			_ = q.channel.Nack(tag, false, true)
		}
	}()

	for i := 0; i < state.Messages && ctx.Err() == nil; i++ {
		d, ok, err := q.channel.Get(q.topology.DeadLetterQueue, false)
		if err != nil {
			return purged, fmt.Errorf("read %s: %w", q.topology.DeadLetterQueue, err)
		}
		if !ok {
			break
		}
		if !isOlderThan(d.Timestamp, cutoff) {
			keep = append(keep, d.DeliveryTag)
			continue
		}
		if err := d.Ack(false); err != nil {
			return purged, fmt.Errorf("ack dead letter: %w", err)
		}
		purged++
	}
	return purged, nil
}

// isOlderThan treats jobs without a publish timestamp as old.
func isOlderThan(published, cutoff time.Time) bool {
	return published.IsZero() || published.Before(cutoff)
}

// Close closes the publish channel and the connection.
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if cerr := q.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
