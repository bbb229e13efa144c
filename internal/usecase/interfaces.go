package usecase

import (
	"context"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

// NotificationSender delivers a notification: straight to SMTP or onto the
// broker for the worker.
type NotificationSender interface {
	Send(ctx context.Context, n entity.Notification) error
}

type Notifier interface {
	Notify(ctx context.Context, n entity.Notification)
}

// EventLedger remembers provider event ids that were fully applied.
type EventLedger interface {
	Seen(ctx context.Context, provider Provider, eventID string) (bool, error)
	Mark(ctx context.Context, provider Provider, eventID string) error
}

type CalendarBookingInput struct {
	APIKey      string
	EventTypeID int
	Start       string
	Name        string
	Email       string
	Phone       string
	Notes       string
	TimeZone    string
	Metadata    map[string]string
}

type CalendarBooking struct {
	ID        int64
	UID       string
	StartTime string
}

type CalendarClient interface {
	CreateBooking(ctx context.Context, in CalendarBookingInput) (*CalendarBooking, error)
}

type SecretDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}
