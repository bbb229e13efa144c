package entity

import (
	"context"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCanceling SubscriptionStatus = "canceling"
	SubscriptionCanceled  SubscriptionStatus = "canceled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

// Subscription is the billing state stored on a profile row.
type Subscription struct {
	Plan                 string             `json:"plan"`
	StripeCustomerID     string             `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	Status               SubscriptionStatus `json:"subscription_status,omitempty"`
	PeriodEnd            *time.Time         `json:"subscription_period_end,omitempty"`
	// LastEventAt is the creation time of the newest Stripe event applied.
	LastEventAt *time.Time `json:"stripe_event_at,omitempty"`
}

type Profile struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	FullName     string       `json:"full_name,omitempty"`
	CompanyName  string       `json:"company_name,omitempty"`
	Subscription Subscription `json:"subscription"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SubscriptionUpdate carries the fields a Stripe event changes. Nil pointers
// are left untouched; ClearSubscriptionID nulls stripe_subscription_id.
type SubscriptionUpdate struct {
	Plan                 *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	ClearSubscriptionID  bool
	Status               *SubscriptionStatus
	PeriodEnd            *time.Time
	EventAt              time.Time
}

// ProfileKey addresses a profile either by id or by Stripe customer id.
type ProfileKey struct {
	ID               string
	StripeCustomerID string
}

type ProfileRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Profile, error)
	FindFirst(ctx context.Context) (*Profile, error)
	// ApplySubscription writes u unless the profile already reflects a newer
	// Stripe event. It reports whether a row changed.
	ApplySubscription(ctx context.Context, key ProfileKey, u SubscriptionUpdate) (bool, error)
}
