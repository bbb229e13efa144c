package handlers_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/infra/database"
	"github.com/greenlineai/webhook-reconciler/internal/infra/http/handlers"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

const calendlySecret = "calendly-signing-key"

const janeDoeBooking = `{
  "event": "invitee.created",
  "payload": {
    "uri": "https://api.calendly.com/scheduled_events/EV1/invitees/INV1",
    "name": "Jane Doe",
    "email": "jane@example.com",
    "questions_and_answers": [{"question": "Business name", "answer": "Doe Dental"}],
    "scheduled_event": {
      "name": "Strategy Call",
      "start_time": "2025-12-05T14:00:00Z",
      "end_time": "2025-12-05T14:30:00Z"
    }
  }
}`

func signCalendly(body []byte, at time.Time) string {
	ts := fmt.Sprint(at.Unix())
	mac := hmac.New(sha256.New, []byte(calendlySecret))
	mac.Write([]byte(ts + "." + string(body)))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func newBookingHandler(s *testStore, notifier usecase.Notifier, secret string) *handlers.BookingWebhookHandler {
	booker := usecase.NewReconcileMeetingUseCase(s.resolver(), s.leads, s.calls, s.meetings, notifier, discardLogger())
	verifier := usecase.NewCalendlyVerifier(secret, 5*time.Minute, discardLogger())
	return handlers.NewBookingWebhookHandler(verifier, booker, discardLogger())
}

func TestBookingWebhookCalendlyInvitee(t *testing.T) {
	s := newTestStore()
	s.Seed("profiles", database.Row{"id": "user-1", "email": "owner@example.com", "created_at": seedTime})
	notifier := &recordingNotifier{}
	h := newBookingHandler(s, notifier, calendlySecret)

	body := []byte(janeDoeBooking)
	headers := map[string]string{"Calendly-Webhook-Signature": signCalendly(body, time.Now())}

	rec := postJSON(t, h.Handle, "/api/calendly/webhook", body, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["meeting_id"])

	leads := s.Rows("leads")
	require.Len(t, leads, 1)
	assert.Equal(t, "user-1", leads[0]["user_id"])
	assert.Equal(t, "jane@example.com", leads[0]["email"])
	assert.Equal(t, "meeting_scheduled", leads[0]["status"])

	meetings := s.Rows("meetings")
	require.Len(t, meetings, 1)
	assert.Equal(t, leads[0]["id"], meetings[0]["lead_id"])
	assert.Equal(t, 30, meetings[0]["duration_minutes"])
	assert.Equal(t, 1, notifier.count())

	// Calendly redelivers on timeouts.
	rec = postJSON(t, h.Handle, "/api/calendly/webhook", body, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.Rows("leads"), 1)
	assert.Len(t, s.Rows("meetings"), 1)
}

func TestBookingWebhookCalendlyNestedInvitee(t *testing.T) {
	s := newTestStore()
	s.Seed("profiles", database.Row{"id": "user-1", "email": "owner@example.com", "created_at": seedTime})
	h := newBookingHandler(s, nil, calendlySecret)

	body := []byte(`{
	  "event": "invitee.created",
	  "payload": {
	    "invitee": {"name": "Jane Doe", "email": "jane@x.com"},
	    "scheduled_event": {"start_time": "2025-12-05T14:00:00Z"}
	  }
	}`)
	rec := postJSON(t, h.Handle, "/api/calendly/webhook", body, map[string]string{
		"Calendly-Webhook-Signature": signCalendly(body, time.Now()),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	leads := s.Rows("leads")
	require.Len(t, leads, 1)
	assert.Equal(t, "jane@x.com", leads[0]["email"])
	assert.Equal(t, "meeting_scheduled", leads[0]["status"])

	meetings := s.Rows("meetings")
	require.Len(t, meetings, 1)
	assert.Equal(t, time.Date(2025, 12, 5, 14, 0, 0, 0, time.UTC), meetings[0]["scheduled_at"])
}

func TestBookingWebhookTenantFromQuery(t *testing.T) {
	s := newTestStore()
	s.Seed("profiles", database.Row{"id": "user-1", "email": "owner@example.com", "created_at": seedTime})
	h := newBookingHandler(s, nil, "")

	rec := postJSON(t, h.Handle, "/api/calendly/webhook?user_id=user-9", []byte(janeDoeBooking), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-9", s.Rows("leads")[0]["user_id"])
}

func TestBookingWebhookRejectsBadSignature(t *testing.T) {
	s := newTestStore()
	h := newBookingHandler(s, nil, calendlySecret)

	body := []byte(janeDoeBooking)
	rec := postJSON(t, h.Handle, "/api/calendly/webhook", body, map[string]string{
		"Calendly-Webhook-Signature": signCalendly([]byte(`{"event":"other"}`), time.Now()),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.Rows("leads"))
	assert.Empty(t, s.Rows("meetings"))
}

func TestBookingWebhookIgnoredEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"calendly cancel", `{"event":"invitee.canceled","payload":{"email":"jane@example.com"}}`},
		{"cal.com reschedule", `{"triggerEvent":"BOOKING_RESCHEDULED","payload":{"uid":"bk_1"}}`},
		{"unknown shape", `{"hello":"world"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			h := newBookingHandler(s, nil, "")

			rec := postJSON(t, h.Handle, "/api/calendly/webhook", []byte(tt.body), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Event ignored", decodeResponse(t, rec)["message"])
			assert.Empty(t, s.Rows("leads"))
		})
	}
}

func TestBookingWebhookWithoutTenant(t *testing.T) {
	h := newBookingHandler(newTestStore(), nil, "")

	rec := postJSON(t, h.Handle, "/api/calendly/webhook", []byte(janeDoeBooking), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, usecase.CodeUnresolvableEntity, decodeResponse(t, rec)["code"])
}
