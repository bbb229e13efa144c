package usecase

import (
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderRetell   Provider = "retell"
	ProviderCalendly Provider = "calendly"
	ProviderCalCom   Provider = "calcom"
	ProviderMeetings Provider = "meetings"
)

type EventKind string

const (
	KindSubscriptionActivated EventKind = "subscription_activated"
	KindSubscriptionChanged   EventKind = "subscription_changed"
	KindSubscriptionCanceled  EventKind = "subscription_canceled"
	KindPaymentFailed         EventKind = "payment_failed"
	KindCallUpdated           EventKind = "call_updated"
	KindMeetingBooked         EventKind = "meeting_booked"
	KindIgnored               EventKind = "ignored"
)

// EntityRefs carries whatever identifiers the provider sent. Empty fields
// are unknown.
type EntityRefs struct {
	UserID               string
	LeadID               string
	ExternalCallID       string
	StripeCustomerID     string
	StripeSubscriptionID string
	Email                string
	Phone                string
}

type SubscriptionFields struct {
	Plan      *entity.Plan
	PriceID   string
	Status    entity.SubscriptionStatus
	PeriodEnd *time.Time
}

type CallFields struct {
	Status        entity.CallStatus
	RawStatus     string
	KnownStatus   bool
	Duration      *int
	Transcript    string
	RecordingURL  string
	Summary       string
	Sentiment     entity.CallSentiment
	MeetingBooked bool
}

type BookingFields struct {
	ExternalRef     string
	InviteeName     string
	BusinessName    string
	ScheduledAt     time.Time
	DurationMinutes int
	MeetingType     string
	Location        string
	Notes           string
}

// NormalizedEvent is the provider-neutral form of a webhook delivery.
type NormalizedEvent struct {
	Provider     Provider
	EventType    string
	Kind         EventKind
	OccurredAt   time.Time
	Refs         EntityRefs
	Subscription *SubscriptionFields
	Call         *CallFields
	Booking      *BookingFields
}

// Ignored reports events we acknowledge without touching state.
func (e NormalizedEvent) Ignored() bool {
	return e.Kind == KindIgnored
}
