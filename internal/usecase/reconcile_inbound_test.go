package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func inboundWebhook(t *testing.T, body string) usecase.RetellInboundWebhook {
	t.Helper()
	var w usecase.RetellInboundWebhook
	require.NoError(t, json.Unmarshal([]byte(body), &w))
	return w
}

const inboundAnalyzed = `{
  "event": "call_analyzed",
  "call": {
    "call_id": "in_1",
    "agent_id": "agent_1",
    "from_number": "+15550107000",
    "recording_url": "https://rec.example.com/in_1.wav",
    "retell_llm_dynamic_variables": {
      "caller_name": "Tom Baker",
      "caller_phone": "+15550107000",
      "service_type": "Roof leak",
      "service_address": "12 Elm St, San Diego, CA 92101",
      "urgency": "today"
    },
    "call_analysis": {
      "call_summary": "Caller needs a roof inspection.",
      "user_sentiment": "Positive",
      "call_successful": true
    }
  }
}`

func TestInboundCallCreatesLead(t *testing.T) {
	f := newFixture(t)
	f.seedBusiness("agent_1", "", 0)
	uc := usecase.NewReconcileInboundCallUseCase(f.leads, f.businesses, discardLogger())

	out, err := uc.Execute(context.Background(), inboundWebhook(t, inboundAnalyzed))
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, "user-1", out.UserID)
	assert.Equal(t, entity.LeadHot, out.Score)
	assert.Equal(t, entity.LeadInterested, out.Status)

	lead := f.lead(t, out.LeadID)
	assert.Equal(t, "Tom Baker", lead.ContactName)
	assert.Equal(t, "San Diego", lead.City)
	assert.Equal(t, "CA", lead.State)
	assert.Equal(t, "Roof leak", lead.Industry)
	assert.Equal(t, "inbound_call", lead.Source)
	assert.NotNil(t, lead.LastContacted)
	assert.Contains(t, lead.Notes, "Recording: https://rec.example.com/in_1.wav")
}

func TestInboundCallUpdatesExistingLeadWithoutDowngrade(t *testing.T) {
	f := newFixture(t)
	f.seedBusiness("agent_1", "", 0)
	f.seedLead("lead-1", "user-1", "meeting_scheduled", "+15550107000", "")
	uc := usecase.NewReconcileInboundCallUseCase(f.leads, f.businesses, discardLogger())

	out, err := uc.Execute(context.Background(), inboundWebhook(t, inboundAnalyzed))
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, "lead-1", out.LeadID)
	assert.Equal(t, entity.LeadMeetingScheduled, out.Status)

	lead := f.lead(t, "lead-1")
	assert.Equal(t, entity.LeadMeetingScheduled, lead.Status)
	assert.Contains(t, lead.Notes, "New inbound call")
	assert.Len(t, f.store.Rows("leads"), 1)
}

func TestInboundCallSkips(t *testing.T) {
	f := newFixture(t)
	uc := usecase.NewReconcileInboundCallUseCase(f.leads, f.businesses, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"started", `{"event":"call_started","call":{"call_id":"in_1"}}`, "call started"},
		{"function call", `{"event":"function_call","call_id":"in_1"}`, "function call received"},
		{"unknown agent", `{"event":"call_ended","call":{"call_id":"in_1","agent_id":"agent_x"}}`, "no tenant"},
		{"no caller", `{"event":"call_ended","call":{"call_id":"in_1","metadata":{"user_id":"user-1"}}}`, "no caller details"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := uc.Execute(ctx, inboundWebhook(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Skipped)
		})
	}
	assert.Empty(t, f.store.Rows("leads"))
}

func TestInboundCallFlatBody(t *testing.T) {
	f := newFixture(t)
	uc := usecase.NewReconcileInboundCallUseCase(f.leads, f.businesses, discardLogger())

	out, err := uc.Execute(context.Background(), inboundWebhook(t, `{
	  "event": "call_ended",
	  "call_id": "in_2",
	  "from_number": "+15550108000",
	  "metadata": {"client_user_id": "user-9"},
	  "dynamic_variables": {"message_name": "Lia", "message_reason": "Quote request"}
	}`))
	require.NoError(t, err)
	require.True(t, out.Created)

	lead := f.lead(t, out.LeadID)
	assert.Equal(t, "user-9", lead.UserID)
	assert.Equal(t, "+15550108000", lead.Phone)
	assert.Equal(t, entity.LeadContacted, lead.Status)
	assert.Equal(t, entity.LeadCold, lead.Score)
	assert.Contains(t, lead.Notes, "Message: Quote request")
}
