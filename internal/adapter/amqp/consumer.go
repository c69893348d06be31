package amqp

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/infrastructure/metrics"
)

// Processor handles one decoded envelope. A nil return acknowledges the
// delivery; an error leaves it unacked for redelivery.
type Processor interface {
	Process(ctx context.Context, env *domain.EventEnvelope) error
}

// Channel is the slice of *amqp.Channel the consumer needs.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer drains one or more queues and feeds deliveries to the
// processor with manual acknowledgement.
type Consumer struct {
	channel   Channel
	processor Processor
	queues    []string
	prefetch  int
	logger    zerolog.Logger
}

// Config for Consumer.
type Config struct {
	Channel   Channel
	Processor Processor
	Queues    []string
	Prefetch  int
	Logger    zerolog.Logger
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg Config) *Consumer {
	if cfg.Prefetch == 0 {
		cfg.Prefetch = 1
	}
	return &Consumer{
		channel:   cfg.Channel,
		processor: cfg.Processor,
		queues:    cfg.Queues,
		prefetch:  cfg.Prefetch,
		logger:    cfg.Logger,
	}
}

// Start consumes every configured queue until the context is cancelled
// or the broker closes the delivery streams.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, queue := range c.queues {
		deliveries, err := c.channel.Consume(
			queue, // queue
			"",    // consumer
			false, // auto-ack, deliveries are acked after processing
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return err
		}

		c.logger.Info().Str("queue", queue).Msg("consuming queue")

		wg.Add(1)
		go func(queue string, deliveries <-chan amqp.Delivery) {
			defer wg.Done()
			c.drain(ctx, queue, deliveries)
		}(queue, deliveries)
	}

	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) drain(ctx context.Context, queue string, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn().Str("queue", queue).Msg("delivery channel closed")
				return
			}
			c.handle(ctx, d)
		}
	}
}

// handle decodes and processes a single delivery. Malformed bodies are
// rejected without requeue, which dead-letters them to the topic's
// quarantine queue; processing failures are requeued for another attempt.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var env domain.EventEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		c.logger.Error().Err(err).Str("message_id", d.MessageId).Msg("quarantining malformed delivery")
		metrics.EventsDropped.Inc()
		if err := d.Nack(false, false); err != nil {
			c.logger.Error().Err(err).Msg("failed to nack delivery")
		}
		return
	}

	if err := c.processor.Process(ctx, &env); err != nil {
		c.logger.Error().Err(err).Str("event_id", env.EventID).Msg("processing failed, requeueing")
		metrics.EventsRequeued.Inc()
		if err := d.Nack(false, true); err != nil {
			c.logger.Error().Err(err).Msg("failed to nack delivery")
		}
		return
	}

	metrics.EventsConsumed.WithLabelValues(env.EventType).Inc()
	if err := d.Ack(false); err != nil {
		c.logger.Error().Err(err).Str("event_id", env.EventID).Msg("failed to ack delivery")
	}
}
