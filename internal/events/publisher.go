// Package events announces finished documents over RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const RoutingKeyKeyframesReady = "keyframes.ready"

// KeyframesReady tells downstream tools that a document's keyframe
// directory has been rewritten.
type KeyframesReady struct {
	RunID     string    `json:"run_id,omitempty"`
	Document  string    `json:"document"`
	OutputDir string    `json:"output_dir"`
	Keyframes []string  `json:"keyframes"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewPublisher opens a channel on conn and declares exchange as a durable
// topic exchange.
func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishKeyframesReady(ctx context.Context, evt KeyframesReady) error {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		RoutingKeyKeyframesReady,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    evt.CreatedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyKeyframesReady, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}
