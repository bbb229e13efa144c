package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/infra/database"
	"github.com/greenlineai/webhook-reconciler/internal/infra/http/handlers"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func newCallHandler(s *testStore) *handlers.CallWebhookHandler {
	uc := usecase.NewReconcileCallUseCase(s.calls, s.leads, discardLogger())
	return handlers.NewCallWebhookHandler(uc, discardLogger())
}

func seedCallWithLead(s *testStore) {
	s.Seed("leads", database.Row{
		"id":            "lead-1",
		"user_id":       "user-1",
		"business_name": "Acme Plumbing",
		"status":        "new",
		"phone":         "+15550100001",
		"created_at":    seedTime,
	})
	s.Seed("outreach_calls", database.Row{
		"id":               "call-row-1",
		"user_id":          "user-1",
		"lead_id":          "lead-1",
		"external_call_id": "call_abc",
		"status":           "pending",
		"meeting_booked":   false,
		"created_at":       seedTime,
	})
}

func TestCallWebhookUpdatesCallAndLead(t *testing.T) {
	s := newTestStore()
	seedCallWithLead(s)
	h := newCallHandler(s)

	rec := postJSON(t, h.Handle, "/api/calls/webhook", []byte(`{
	  "event": "call_analyzed",
	  "call": {
	    "call_id": "call_abc",
	    "call_status": "ended",
	    "start_timestamp": 1733400000000,
	    "end_timestamp": 1733400090000,
	    "transcript": "agent: Would Tuesday work?\nuser: Sure.",
	    "call_analysis": {"user_sentiment": "Positive", "call_summary": "Interested in a demo"}
	  }
	}`), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeResponse(t, rec)["success"])

	call := s.Rows("outreach_calls")[0]
	assert.Equal(t, "completed", call["status"])
	assert.Equal(t, "Interested in a demo", call["summary"])
	assert.Equal(t, "interested", s.Rows("leads")[0]["status"])
}

func TestCallWebhookOrphanCall(t *testing.T) {
	s := newTestStore()
	h := newCallHandler(s)

	rec := postJSON(t, h.Handle, "/api/calls/webhook", []byte(`{
	  "event": "call_ended",
	  "call": {"call_id": "call_missing", "call_status": "ended"}
	}`), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, usecase.CodeNotFound, decodeResponse(t, rec)["code"])
	assert.Empty(t, s.Rows("outreach_calls"))
}

func TestCallWebhookBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"event":`},
		{"missing call id", `{"event":"call_ended","call":{"call_status":"ended"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCallHandler(newTestStore())
			rec := postJSON(t, h.Handle, "/api/calls/webhook", []byte(tt.body), nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
