package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

type InboundCallReconciler interface {
	Execute(ctx context.Context, w usecase.RetellInboundWebhook) (*usecase.InboundOutcome, error)
}

type InboundWebhookHandler struct {
	Reconciler InboundCallReconciler
	Logger     *slog.Logger
}

func NewInboundWebhookHandler(reconciler InboundCallReconciler, logger *slog.Logger) *InboundWebhookHandler {
	return &InboundWebhookHandler{Reconciler: reconciler, Logger: logger}
}

func (h *InboundWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var payload usecase.RetellInboundWebhook
	if _, ok := decodeBody(w, r, &payload); !ok {
		return
	}

	out, err := h.Reconciler.Execute(r.Context(), payload)
	if err != nil {
		middleware.RecordWebhook(string(usecase.ProviderRetell), "inbound_"+payload.Event, "failed")
		h.Logger.Error("inbound webhook failed", "event", payload.Event, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to process webhook",
		})
		return
	}

	middleware.RecordWebhook(string(usecase.ProviderRetell), "inbound_"+payload.Event, outcome(nil, out.Skipped != ""))
	if out.LeadID != "" {
		middleware.RecordInboundCall(string(out.Score))
	}

	resp := map[string]any{"success": true, "event": payload.Event}
	if out.Skipped != "" {
		resp["message"] = out.Skipped
	}
	if out.LeadID != "" {
		resp["lead_id"] = out.LeadID
		resp["created"] = out.Created
	}
	writeJSON(w, http.StatusOK, resp)
}
