package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

type CallReconciler interface {
	Execute(ctx context.Context, ev usecase.NormalizedEvent) (*usecase.CallOutcome, error)
}

// CallWebhookHandler receives Retell lifecycle events for outbound calls.
type CallWebhookHandler struct {
	Reconciler CallReconciler
	Logger     *slog.Logger
}

func NewCallWebhookHandler(reconciler CallReconciler, logger *slog.Logger) *CallWebhookHandler {
	return &CallWebhookHandler{Reconciler: reconciler, Logger: logger}
}

func (h *CallWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var payload usecase.RetellCallWebhook
	if _, ok := decodeBody(w, r, &payload); !ok {
		return
	}

	ev := usecase.NormalizeCallEvent(payload)
	h.Logger.Info("call webhook received", "event", payload.Event, "call_id", payload.Call.CallID, "status", payload.Call.CallStatus)

	_, err := h.Reconciler.Execute(r.Context(), ev)
	middleware.RecordWebhook(string(usecase.ProviderRetell), payload.Event, outcome(err, false))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
