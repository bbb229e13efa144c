package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

type MeetingBooker interface {
	BookFromCall(ctx context.Context, in usecase.MeetingBookedInput) (*usecase.MeetingOutcome, error)
	BookFromScheduler(ctx context.Context, ev usecase.NormalizedEvent, tenantHint string) (*usecase.MeetingOutcome, error)
}

type MeetingWebhookHandler struct {
	Booker MeetingBooker
	Logger *slog.Logger
}

func NewMeetingWebhookHandler(booker MeetingBooker, logger *slog.Logger) *MeetingWebhookHandler {
	return &MeetingWebhookHandler{Booker: booker, Logger: logger}
}

func (h *MeetingWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var input usecase.MeetingBookedInput
	if _, ok := decodeBody(w, r, &input); !ok {
		return
	}

	out, err := h.Booker.BookFromCall(r.Context(), input)
	middleware.RecordWebhook(string(usecase.ProviderMeetings), string(usecase.KindMeetingBooked), outcome(err, false))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"meeting_id": out.MeetingID,
	})
}
