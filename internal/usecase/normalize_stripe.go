package usecase

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v74"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const (
	stripeCheckoutCompleted    = "checkout.session.completed"
	stripeSubscriptionCreated  = "customer.subscription.created"
	stripeSubscriptionUpdated  = "customer.subscription.updated"
	stripeSubscriptionDeleted  = "customer.subscription.deleted"
	stripeInvoicePaymentFailed = "invoice.payment_failed"
)

// NormalizeStripeEvent turns a verified Stripe event into a NormalizedEvent.
// Unhandled types come back as KindIgnored. A handled type whose object does
// not decode is an INVALID_PAYLOAD error.
func NormalizeStripeEvent(event stripe.Event, catalog *entity.PlanCatalog) (NormalizedEvent, error) {
	out := NormalizedEvent{
		Provider:   ProviderStripe,
		EventType:  string(event.Type),
		Kind:       KindIgnored,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch out.EventType {
	case stripeCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return out, newDomainError(CodeInvalidPayload, "decoding checkout session: %v", err)
		}
		out.Kind = KindSubscriptionActivated
		out.Refs.UserID = session.Metadata["userId"]
		if out.Refs.UserID == "" {
			out.Refs.UserID = session.ClientReferenceID
		}
		if session.Customer != nil {
			out.Refs.StripeCustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			out.Refs.StripeSubscriptionID = session.Subscription.ID
		}
		out.Subscription = checkoutFields(&session, catalog)

	case stripeSubscriptionCreated, stripeSubscriptionUpdated, stripeSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return out, newDomainError(CodeInvalidPayload, "decoding subscription: %v", err)
		}
		out.Refs.StripeSubscriptionID = sub.ID
		if sub.Customer != nil {
			out.Refs.StripeCustomerID = sub.Customer.ID
		}
		if out.EventType == stripeSubscriptionDeleted {
			out.Kind = KindSubscriptionCanceled
			out.Subscription = &SubscriptionFields{Status: entity.SubscriptionCanceled}
			break
		}
		out.Kind = KindSubscriptionChanged
		out.Subscription = subscriptionFields(&sub, catalog)
		if out.Subscription.PeriodEnd == nil {
			out.Subscription.PeriodEnd = itemPeriodEnd(raw)
		}

	case stripeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return out, newDomainError(CodeInvalidPayload, "decoding invoice: %v", err)
		}
		out.Kind = KindPaymentFailed
		if inv.Customer != nil {
			out.Refs.StripeCustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			out.Refs.StripeSubscriptionID = inv.Subscription.ID
		}
	}

	return out, nil
}

func checkoutFields(s *stripe.CheckoutSession, catalog *entity.PlanCatalog) *SubscriptionFields {
	f := &SubscriptionFields{Status: entity.SubscriptionActive}

	if p, ok := entity.ParsePlan(s.Metadata["plan"]); ok {
		f.Plan = &p
		return f
	}

	f.PriceID = s.Metadata["priceId"]
	if f.PriceID == "" && s.LineItems != nil && len(s.LineItems.Data) > 0 && s.LineItems.Data[0].Price != nil {
		f.PriceID = s.LineItems.Data[0].Price.ID
	}
	if p, ok := catalog.PlanForPrice(f.PriceID); ok {
		f.Plan = &p
	}
	return f
}

func subscriptionFields(sub *stripe.Subscription, catalog *entity.PlanCatalog) *SubscriptionFields {
	f := &SubscriptionFields{Status: entity.SubscriptionStatus(sub.Status)}
	if sub.Status == stripe.SubscriptionStatusActive && sub.CancelAtPeriodEnd {
		f.Status = entity.SubscriptionCanceling
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		f.PriceID = sub.Items.Data[0].Price.ID
		if p, ok := catalog.PlanForPrice(f.PriceID); ok {
			f.Plan = &p
		}
	}

	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		f.PeriodEnd = &end
	}
	return f
}

// itemPeriodEnd reads items.data[0].current_period_end. Newer API versions
// only send the period on the item, which stripe-go v74 does not model.
func itemPeriodEnd(raw json.RawMessage) *time.Time {
	var sub struct {
		Items struct {
			Data []struct {
				CurrentPeriodEnd int64 `json:"current_period_end"`
			} `json:"data"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &sub); err != nil || len(sub.Items.Data) == 0 {
		return nil
	}
	if sub.Items.Data[0].CurrentPeriodEnd <= 0 {
		return nil
	}
	end := time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0).UTC()
	return &end
}
