package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

// Consumer is the part of *amqp.Channel the worker uses.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker drains the notification queue into a sender, usually SMTP.
type Worker struct {
	Channel Consumer
	Sender  usecase.NotificationSender
	Logger  *slog.Logger
	// OnResult, when set, observes every delivery attempt.
	OnResult func(n entity.Notification, err error)
}

func NewWorker(ch Consumer, sender usecase.NotificationSender, logger *slog.Logger) *Worker {
	return &Worker{
		Channel: ch,
		Sender:  sender,
		Logger:  logger,
	}
}

// Start consumes queueName until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("registering consumer: %w", err)
	}

	w.Logger.Info("notification worker listening", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery acks on success. A failed send is requeued once, then
// dead-lettered; malformed bodies go straight to the DLQ.
func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var n entity.Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		w.Logger.Error("invalid notification message", "error", err)
		_ = d.Nack(false, false)
		return
	}

	log := w.Logger.With("kind", n.Kind, "user_id", n.UserID, "meeting_id", n.MeetingID)
	err := w.Sender.Send(ctx, n)
	if w.OnResult != nil {
		w.OnResult(n, err)
	}
	if err != nil {
		requeue := !d.Redelivered
		log.Error("notification delivery failed", "error", err, "requeue", requeue)
		_ = d.Nack(false, requeue)
		return
	}

	log.Info("notification delivered", "recipient", n.RecipientEmail)
	_ = d.Ack(false)
}
