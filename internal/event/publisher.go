// Package event publishes domain events to downstream consumers such as the mailer.
package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Routing keys
const (
	ResponseCompleted = "survey.response.completed"
)

// Envelope is the wire shape of every event
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events. Delivery is fire-and-forget for callers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// AMQPPublisher sends events to a topic exchange, routed by event type
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange
func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := Encode(eventType, payload)
	if err != nil {
		return err
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher only logs events. It stands in when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log.With("component", "events")}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	p.log.InfoContext(ctx, "event published", "type", eventType, "body", string(body))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Encode wraps payload in an envelope and marshals it
func Encode(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload})
}
