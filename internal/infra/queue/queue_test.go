package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, n entity.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// fakeAck records what the worker did with a delivery.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked, f.requeue = true, requeue
	return nil
}

func (f *fakeAck) Reject(_ uint64, requeue bool) error {
	f.nacked, f.requeue = true, requeue
	return nil
}

func sampleNotification() entity.Notification {
	return entity.Notification{
		Kind:           entity.NotifyMeetingBooked,
		UserID:         "user-1",
		RecipientEmail: "owner@example.com",
		LeadName:       "Jane Doe",
		MeetingID:      "meeting-1",
		ScheduledAt:    time.Date(2025, 12, 5, 14, 0, 0, 0, time.UTC),
		Source:         "calendly",
	}
}

func TestProducerPublishesPersistentJSON(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, ExchangeName, RoutingKey, false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var n entity.Notification
			return msg.DeliveryMode == amqp.Persistent &&
				msg.ContentType == "application/json" &&
				json.Unmarshal(msg.Body, &n) == nil &&
				n.MeetingID == "meeting-1"
		}),
	).Return(nil)

	require.NoError(t, NewProducer(pub).Send(context.Background(), sampleNotification()))
	pub.AssertExpectations(t)
}

func TestProducerWrapsPublishError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("channel closed"))

	err := NewProducer(pub).Send(context.Background(), sampleNotification())
	assert.ErrorContains(t, err, "channel closed")
}

func delivery(t *testing.T, ack *fakeAck, body []byte, redelivered bool) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body, Redelivered: redelivered}
}

func TestWorkerHandleDelivery(t *testing.T) {
	body, err := json.Marshal(sampleNotification())
	require.NoError(t, err)

	t.Run("success acks", func(t *testing.T) {
		sender := new(MockSender)
		sender.On("Send", mock.Anything, mock.MatchedBy(func(n entity.Notification) bool {
			return n.RecipientEmail == "owner@example.com"
		})).Return(nil)
		ack := &fakeAck{}

		NewWorker(nil, sender, discardLogger()).handleDelivery(context.Background(), delivery(t, ack, body, false))
		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
	})

	t.Run("first failure requeues", func(t *testing.T) {
		sender := new(MockSender)
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		ack := &fakeAck{}

		NewWorker(nil, sender, discardLogger()).handleDelivery(context.Background(), delivery(t, ack, body, false))
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("second failure dead-letters", func(t *testing.T) {
		sender := new(MockSender)
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		ack := &fakeAck{}

		NewWorker(nil, sender, discardLogger()).handleDelivery(context.Background(), delivery(t, ack, body, true))
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})

	t.Run("malformed body dead-letters", func(t *testing.T) {
		sender := new(MockSender)
		ack := &fakeAck{}

		NewWorker(nil, sender, discardLogger()).handleDelivery(context.Background(), delivery(t, ack, []byte("{"), false))
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

type fakeConsumer struct {
	msgs chan amqp.Delivery
}

func (f *fakeConsumer) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.msgs, nil
}

func TestWorkerStartStopsOnContext(t *testing.T) {
	body, err := json.Marshal(sampleNotification())
	require.NoError(t, err)

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	consumer := &fakeConsumer{msgs: make(chan amqp.Delivery, 1)}
	ack := &fakeAck{}
	consumer.msgs <- delivery(t, ack, body, false)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(consumer, sender, discardLogger())
	w.OnResult = func(entity.Notification, error) { cancel() }

	require.NoError(t, w.Start(ctx, QueueName))
	assert.True(t, ack.acked)
}

func TestWorkerStartReportsClosedChannel(t *testing.T) {
	consumer := &fakeConsumer{msgs: make(chan amqp.Delivery)}
	close(consumer.msgs)

	err := NewWorker(consumer, new(MockSender), discardLogger()).Start(context.Background(), QueueName)
	assert.Error(t, err)
}
