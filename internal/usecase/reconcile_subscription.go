package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

type SubscriptionOutcome struct {
	ProfileID string
	Applied   bool
	Message   string
}

// ReconcileSubscriptionUseCase mirrors Stripe billing state onto profiles.
// Writes are conditional on the event being newer than the last one applied,
// so late deliveries never roll a profile back.
type ReconcileSubscriptionUseCase struct {
	Profiles entity.ProfileRepositoryInterface
	Logger   *slog.Logger
}

func NewReconcileSubscriptionUseCase(profiles entity.ProfileRepositoryInterface, logger *slog.Logger) *ReconcileSubscriptionUseCase {
	return &ReconcileSubscriptionUseCase{Profiles: profiles, Logger: logger}
}

func (uc *ReconcileSubscriptionUseCase) Execute(ctx context.Context, ev NormalizedEvent) (*SubscriptionOutcome, error) {
	log := uc.Logger.With("event", ev.EventType, "customer_id", ev.Refs.StripeCustomerID)

	var (
		key    entity.ProfileKey
		update = entity.SubscriptionUpdate{EventAt: ev.OccurredAt}
	)

	switch ev.Kind {
	case KindSubscriptionActivated:
		if ev.Refs.UserID == "" {
			return nil, newDomainError(CodeUnresolvableEntity, "checkout session has no userId metadata")
		}
		key.ID = ev.Refs.UserID
		plan := uc.planValue(log, ev.Subscription)
		status := entity.SubscriptionActive
		update.Plan = &plan
		update.Status = &status
		if ev.Refs.StripeCustomerID != "" {
			update.StripeCustomerID = &ev.Refs.StripeCustomerID
		}
		if ev.Refs.StripeSubscriptionID != "" {
			update.StripeSubscriptionID = &ev.Refs.StripeSubscriptionID
		}

	case KindSubscriptionChanged:
		if ev.Refs.StripeCustomerID == "" {
			return nil, newDomainError(CodeUnresolvableEntity, "subscription has no customer")
		}
		key.StripeCustomerID = ev.Refs.StripeCustomerID
		if f := ev.Subscription; f != nil {
			if f.Status != "" {
				status := f.Status
				update.Status = &status
			}
			if f.Plan != nil {
				plan := f.Plan.DBValue()
				update.Plan = &plan
			} else if f.PriceID != "" {
				log.Warn("unknown price id, keeping current plan", "price_id", f.PriceID)
			}
			update.PeriodEnd = f.PeriodEnd
		}
		if ev.Refs.StripeSubscriptionID != "" {
			update.StripeSubscriptionID = &ev.Refs.StripeSubscriptionID
		}

	case KindSubscriptionCanceled:
		if ev.Refs.StripeCustomerID == "" {
			return nil, newDomainError(CodeUnresolvableEntity, "subscription has no customer")
		}
		key.StripeCustomerID = ev.Refs.StripeCustomerID
		plan := entity.DBPlanLeads
		status := entity.SubscriptionCanceled
		update.Plan = &plan
		update.Status = &status
		update.ClearSubscriptionID = true

	case KindPaymentFailed:
		log.Warn("invoice payment failed", "subscription_id", ev.Refs.StripeSubscriptionID)
		return &SubscriptionOutcome{Message: "Payment failure recorded"}, nil

	default:
		log.Info("unhandled Stripe event")
		return &SubscriptionOutcome{Message: "Unhandled event type: " + ev.EventType}, nil
	}

	applied, err := uc.Profiles.ApplySubscription(ctx, key, update)
	if err != nil {
		return nil, storeError("updating subscription", err)
	}

	profile, err := uc.findProfile(ctx, key)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		log.Warn("no profile for Stripe event", "user_id", key.ID)
		return &SubscriptionOutcome{Message: "No matching profile"}, nil
	case err != nil:
		return nil, storeError("finding profile", err)
	}

	out := &SubscriptionOutcome{ProfileID: profile.ID, Applied: applied}
	if !applied {
		log.Info("stale Stripe event skipped", "profile_id", profile.ID, "last_event_at", profile.Subscription.LastEventAt)
		out.Message = "Stale event ignored"
		return out, nil
	}

	log.Info("subscription reconciled", "profile_id", profile.ID, "kind", ev.Kind)
	out.Message = "Processed " + ev.EventType
	return out, nil
}

func (uc *ReconcileSubscriptionUseCase) planValue(log *slog.Logger, f *SubscriptionFields) string {
	if f != nil && f.Plan != nil {
		return f.Plan.DBValue()
	}
	priceID := ""
	if f != nil {
		priceID = f.PriceID
	}
	log.Warn("checkout without a known plan, defaulting", "price_id", priceID, "plan", entity.DBPlanLeads)
	return entity.DBPlanLeads
}

func (uc *ReconcileSubscriptionUseCase) findProfile(ctx context.Context, key entity.ProfileKey) (*entity.Profile, error) {
	if key.ID != "" {
		return uc.Profiles.FindByID(ctx, key.ID)
	}
	return uc.Profiles.FindByStripeCustomerID(ctx, key.StripeCustomerID)
}
