package handlers

import (
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

type SignatureVerifier interface {
	Verify(body []byte, header string) error
}

// BookingWebhookHandler takes Calendly and Cal.com deliveries on one path;
// the payload shape tells them apart. A user_id query parameter on the
// subscription URL pins new leads to that tenant.
type BookingWebhookHandler struct {
	Verifier SignatureVerifier
	Booker   MeetingBooker
	Logger   *slog.Logger
}

func NewBookingWebhookHandler(verifier SignatureVerifier, booker MeetingBooker, logger *slog.Logger) *BookingWebhookHandler {
	return &BookingWebhookHandler{Verifier: verifier, Booker: booker, Logger: logger}
}

func (h *BookingWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if err := h.Verifier.Verify(body, r.Header.Get("Calendly-Webhook-Signature")); err != nil {
		middleware.RecordWebhook(string(usecase.ProviderCalendly), "", outcome(err, false))
		h.Logger.Warn("booking webhook signature rejected", "remote", r.RemoteAddr)
		writeError(w, h.Logger, err)
		return
	}

	ev, err := usecase.NormalizeBookingEvent(body)
	if err != nil {
		middleware.RecordWebhook(string(usecase.ProviderCalendly), "", outcome(err, false))
		writeError(w, h.Logger, err)
		return
	}
	if ev.Ignored() {
		middleware.RecordWebhook(string(ev.Provider), ev.EventType, "ignored")
		h.Logger.Info("booking event ignored", "provider", ev.Provider, "event", ev.EventType)
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "message": "Event ignored"})
		return
	}

	out, err := h.Booker.BookFromScheduler(r.Context(), ev, r.URL.Query().Get("user_id"))
	middleware.RecordWebhook(string(ev.Provider), ev.EventType, outcome(err, false))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"meeting_id": out.MeetingID,
		"lead_id":    out.LeadID,
	})
}
