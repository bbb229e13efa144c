package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

// Publisher is the part of *amqp.Channel the producer uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NotificationProducer hands notifications to the broker; the worker does
// the actual delivery.
type NotificationProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *NotificationProducer {
	return &NotificationProducer{Ch: ch}
}

func (p *NotificationProducer) Send(ctx context.Context, n entity.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(n.Kind),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing to RabbitMQ: %w", err)
	}
	return nil
}
