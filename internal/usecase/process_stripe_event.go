package usecase

import (
	"context"
	"log/slog"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

// ProcessStripeEventUseCase runs one Stripe delivery through verification,
// normalization and reconciliation.
type ProcessStripeEventUseCase struct {
	Verifier   *StripeVerifier
	Catalog    *entity.PlanCatalog
	Reconciler *ReconcileSubscriptionUseCase
	Ledger     EventLedger
	Logger     *slog.Logger
}

func NewProcessStripeEventUseCase(
	verifier *StripeVerifier,
	catalog *entity.PlanCatalog,
	reconciler *ReconcileSubscriptionUseCase,
	ledger EventLedger,
	logger *slog.Logger,
) *ProcessStripeEventUseCase {
	return &ProcessStripeEventUseCase{
		Verifier:   verifier,
		Catalog:    catalog,
		Reconciler: reconciler,
		Ledger:     ledger,
		Logger:     logger,
	}
}

func (uc *ProcessStripeEventUseCase) Execute(ctx context.Context, body []byte, signature string) (*SubscriptionOutcome, EventKind, error) {
	if uc.Verifier == nil || !uc.Verifier.Configured() {
		return nil, "", &TechnicalError{Code: CodeNotConfigured, Message: "STRIPE_WEBHOOK_SECRET is not configured"}
	}
	if signature == "" {
		return nil, "", newDomainError(CodeInvalidSignature, "missing Stripe-Signature header")
	}

	event, err := uc.Verifier.Verify(body, signature)
	if err != nil {
		return nil, "", err
	}
	log := uc.Logger.With("event_id", event.ID, "event", string(event.Type))

	if uc.Ledger != nil && event.ID != "" {
		seen, err := uc.Ledger.Seen(ctx, ProviderStripe, event.ID)
		if err != nil {
			log.Warn("event ledger unavailable", "error", err)
		} else if seen {
			log.Info("duplicate Stripe event skipped")
			return &SubscriptionOutcome{Message: "Duplicate event ignored"}, KindIgnored, nil
		}
	}

	ev, err := NormalizeStripeEvent(event, uc.Catalog)
	if err != nil {
		return nil, "", err
	}

	out, err := uc.Reconciler.Execute(ctx, ev)
	if err != nil {
		return nil, ev.Kind, err
	}

	if uc.Ledger != nil && event.ID != "" && !ev.Ignored() {
		if err := uc.Ledger.Mark(ctx, ProviderStripe, event.ID); err != nil {
			log.Warn("recording Stripe event", "error", err)
		}
	}
	return out, ev.Kind, nil
}
