package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pw/paywallet/internal/domain"
)

// Client wraps an AMQP connection and channel. One client per process
// is enough; publishers and consumers share the channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials the broker, retrying with backoff while it starts up.
func Connect(url string) (*Client, error) {
	var conn *amqp.Connection

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}, b)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &Client{conn: conn, channel: ch}, nil
}

// Channel exposes the underlying AMQP channel.
func (c *Client) Channel() *amqp.Channel {
	return c.channel
}

// QuarantineSuffix names the dead-letter queue paired with each topic.
const QuarantineSuffix = ".quarantine"

type queueDeclaration struct {
	name string
	args amqp.Table
}

// queueDeclarations pairs every topic queue with a quarantine queue.
// Rejected deliveries (Nack without requeue) dead-letter into the
// quarantine instead of being discarded.
func queueDeclarations(topics []string) []queueDeclaration {
	decls := make([]queueDeclaration, 0, 2*len(topics))
	for _, topic := range topics {
		decls = append(decls,
			queueDeclaration{name: topic + QuarantineSuffix},
			queueDeclaration{name: topic, args: amqp.Table{
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": topic + QuarantineSuffix,
			}},
		)
	}
	return decls
}

// DeclareQueues declares one durable queue per topic, each backed by a
// durable quarantine queue for rejected deliveries.
func (c *Client) DeclareQueues(topics ...string) error {
	for _, decl := range queueDeclarations(topics) {
		_, err := c.channel.QueueDeclare(
			decl.name, // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			decl.args, // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", decl.name, err)
		}
	}
	return nil
}

// Close closes the channel and connection.
func (c *Client) Close() {
	c.channel.Close()
	c.conn.Close()
}

// Publisher publishes outbox events to their topic queue. It satisfies
// the event publisher worker's Publisher interface.
type Publisher struct {
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewPublisher creates a Publisher on the client's channel.
func NewPublisher(client *Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{channel: client.channel, logger: logger}
}

// Publish sends the event's envelope to the queue named by its topic.
// Deliveries are persistent and carry the event ID as MessageId so
// consumers can deduplicate redeliveries.
func (p *Publisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(event.Envelope())
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",          // exchange
		event.Topic, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			MessageId:    event.ID,
			Type:         event.EventType,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.CreatedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message published",
		slog.String("event_id", event.ID),
		slog.String("topic", event.Topic))

	return nil
}
