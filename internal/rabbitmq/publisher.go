// Package rabbitmq carries the durable audit stream. Unlike the
// best-effort telemetry publisher in internal/observability, audit
// events are published persistent; when AMQP is unconfigured or
// unreachable the service still starts, logging events locally instead.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes audit events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher connects to RabbitMQ, falling back to a log-only
// publisher when the URL is empty or the broker cannot be reached.
func NewPublisher(amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		log.Printf("audit publisher: amqp not configured, logging only")
		return &logPublisher{reason: "amqp url not set"}
	}

	publisher, err := dial(amqpURL, exchange)
	if err != nil {
		log.Printf("audit publisher: broker unavailable, logging only: %v", err)
		return &logPublisher{reason: err.Error()}
	}

	log.Printf("audit publisher: connected, exchange=%s", exchange)
	return publisher
}

func dial(amqpURL, exchange string) (*brokerPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &brokerPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

type brokerPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *brokerPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *brokerPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// logPublisher stands in when no broker is available. Events are still
// visible in the service log, just not delivered anywhere.
type logPublisher struct {
	reason string
}

func (p *logPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	log.Printf("audit (no broker) routing_key=%s event=%s", routingKey, body)
	return nil
}

func (p *logPublisher) Close() error { return nil }

// PublisherMode reports which implementation is active, for the
// startup log line.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *brokerPublisher:
		return "amqp"
	case *logPublisher:
		return "log"
	default:
		return "unknown"
	}
}

// PublisherNoopReason explains why the fallback is in use, empty when
// the broker publisher is active.
func PublisherNoopReason(p Publisher) string {
	if fallback, ok := p.(*logPublisher); ok {
		return fallback.reason
	}
	return ""
}
