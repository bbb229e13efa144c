package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

type StripeEventProcessor interface {
	Execute(ctx context.Context, body []byte, signature string) (*usecase.SubscriptionOutcome, usecase.EventKind, error)
}

type StripeWebhookHandler struct {
	Processor StripeEventProcessor
	Logger    *slog.Logger
}

func NewStripeWebhookHandler(processor StripeEventProcessor, logger *slog.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{Processor: processor, Logger: logger}
}

// Handle verifies against the raw bytes, so the body must not be decoded
// before it reaches the processor.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	out, kind, err := h.Processor.Execute(r.Context(), body, r.Header.Get("Stripe-Signature"))
	middleware.RecordWebhook(string(usecase.ProviderStripe), string(kind), outcome(err, kind == usecase.KindIgnored))
	if err != nil {
		if usecase.DomainCode(err) == usecase.CodeInvalidSignature {
			h.Logger.Warn("stripe signature rejected", "remote", r.RemoteAddr)
		}
		writeError(w, h.Logger, err)
		return
	}

	resp := map[string]any{"received": true}
	if out != nil && out.Message != "" {
		resp["message"] = out.Message
	}
	writeJSON(w, http.StatusOK, resp)
}
