package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

type BookingCreator interface {
	Execute(ctx context.Context, in usecase.CreateBookingInput) (*usecase.CreateBookingOutput, error)
}

// createBookingRequest accepts the flat body and Retell's function-call body,
// which nests the same fields under "args".
type createBookingRequest struct {
	usecase.CreateBookingInput
	Args *struct {
		usecase.CreateBookingInput
		CallerName  string `json:"caller_name"`
		CallerPhone string `json:"caller_phone"`
		CallerEmail string `json:"caller_email"`
		Datetime    string `json:"datetime"`
	} `json:"args"`
}

func (req createBookingRequest) input() usecase.CreateBookingInput {
	in := req.CreateBookingInput
	a := req.Args
	if a == nil {
		return in
	}
	in.AgentID = pick(in.AgentID, a.AgentID)
	in.AttendeeName = pick(in.AttendeeName, a.AttendeeName, a.CallerName)
	in.AttendeePhone = pick(in.AttendeePhone, a.AttendeePhone, a.CallerPhone)
	in.AttendeeEmail = pick(in.AttendeeEmail, a.AttendeeEmail, a.CallerEmail)
	in.StartTime = pick(in.StartTime, a.StartTime, a.Datetime)
	in.ServiceType = pick(in.ServiceType, a.ServiceType)
	in.Notes = pick(in.Notes, a.Notes)
	in.TimeZone = pick(in.TimeZone, a.TimeZone)
	return in
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CreateBookingHandler is called by the phone agent mid-call. Every answer
// carries text the agent can read back to the caller.
type CreateBookingHandler struct {
	Creator BookingCreator
	Logger  *slog.Logger
}

func NewCreateBookingHandler(creator BookingCreator, logger *slog.Logger) *CreateBookingHandler {
	return &CreateBookingHandler{Creator: creator, Logger: logger}
}

func (h *CreateBookingHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, usecase.CreateBookingOutput{Error: "Invalid JSON"})
		return
	}

	out, err := h.Creator.Execute(r.Context(), req.input())
	if err != nil {
		status := statusFor(err)
		resp := usecase.CreateBookingOutput{Error: err.Error()}
		switch {
		case status == http.StatusNotFound:
			resp.FallbackMessage = usecase.FallbackBusinessMessage
		case status == http.StatusInternalServerError:
			var te *usecase.TechnicalError
			if errors.As(err, &te) && te.Code == usecase.CodeIntegrationError {
				middleware.RecordIntegrationError("calcom")
			}
			h.Logger.Error("creating booking", "agent_id", req.input().AgentID, "error", err)
			resp.Error = "Failed to create booking"
			resp.FallbackMessage = usecase.FallbackBookingMessage
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
