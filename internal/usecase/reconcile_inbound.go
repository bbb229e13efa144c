package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const retellFunctionCall = "function_call"

// RetellInboundWebhook accepts both the nested {"event","call":{...}} body and
// the flat body older inbound agents post.
type RetellInboundWebhook struct {
	Event string      `json:"event"`
	Call  *RetellCall `json:"call"`
	RetellCall
	DynamicVars map[string]any `json:"dynamic_variables"`
	DurationMS  int64          `json:"duration_ms"`
}

func (w RetellInboundWebhook) call() RetellCall {
	c := w.RetellCall
	if w.Call != nil {
		c = *w.Call
	}
	if len(c.DynamicVariables) == 0 {
		c.DynamicVariables = w.DynamicVars
	}
	return c
}

type InboundOutcome struct {
	Event   string
	UserID  string
	LeadID  string
	Created bool
	Status  entity.LeadStatus
	Score   entity.LeadScore
	Skipped string
}

// ReconcileInboundCallUseCase turns finished inbound calls into CRM leads for
// the tenant the answering agent belongs to.
type ReconcileInboundCallUseCase struct {
	Leads      entity.LeadRepositoryInterface
	Businesses entity.BusinessRepositoryInterface
	Logger     *slog.Logger
	now        func() time.Time
}

func NewReconcileInboundCallUseCase(
	leads entity.LeadRepositoryInterface,
	businesses entity.BusinessRepositoryInterface,
	logger *slog.Logger,
) *ReconcileInboundCallUseCase {
	return &ReconcileInboundCallUseCase{
		Leads:      leads,
		Businesses: businesses,
		Logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ReconcileInboundCallUseCase) Execute(ctx context.Context, w RetellInboundWebhook) (*InboundOutcome, error) {
	c := w.call()
	out := &InboundOutcome{Event: w.Event}
	log := uc.Logger.With("event", w.Event, "call_id", c.CallID, "agent_id", c.AgentID)

	switch w.Event {
	case RetellCallEnded, RetellCallAnalyzed:
	case RetellCallStarted:
		log.Info("inbound call started", "from", c.FromNumber, "to", c.ToNumber)
		out.Skipped = "call started"
		return out, nil
	case retellFunctionCall:
		out.Skipped = "function call received"
		return out, nil
	default:
		out.Skipped = "event ignored"
		return out, nil
	}

	userID, err := uc.tenant(ctx, c)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		log.Warn("inbound call has no tenant, skipping CRM update")
		out.Skipped = "no tenant"
		return out, nil
	}
	out.UserID = userID

	vars := c.DynamicVariables
	name := metaString(vars, "caller_name", "message_name", "business_name")
	if name == "" {
		out.Skipped = "no caller details"
		return out, nil
	}

	analysis := c.CallAnalysis
	if analysis == nil {
		analysis = &RetellCallAnalysis{}
	}
	out.Score = inboundScore(vars, analysis)
	out.Status = inboundStatus(analysis)

	now := uc.now()
	addr := metaString(vars, "service_address")
	city, state := parseAddress(addr)

	lead := entity.NewLead(userID,
		firstNonEmpty(metaString(vars, "business_name", "caller_name", "message_name"), "Inbound Caller"),
		firstNonEmpty(metaString(vars, "caller_phone", "message_phone"), c.FromNumber),
	)
	lead.ContactName = firstNonEmpty(metaString(vars, "caller_name", "message_name", "business_name"), "Unknown Caller")
	lead.Email = metaString(vars, "caller_email")
	lead.Address = addr
	lead.City = firstNonEmpty(city, metaString(vars, "location"), "Unknown")
	lead.State = firstNonEmpty(state, "Unknown")
	lead.Industry = firstNonEmpty(metaString(vars, "business_type", "service_type"), "Other")
	lead.Status = out.Status
	lead.Score = out.Score
	lead.Source = "inbound_call"
	lead.LastContacted = &now
	notes := inboundNotes(c, vars, analysis, now)

	existing, err := uc.Leads.FindByPhone(ctx, userID, lead.Phone)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		lead.Notes = notes
		if err := uc.Leads.Create(ctx, lead); err != nil {
			return nil, storeError("creating lead", err)
		}
		out.LeadID = lead.ID
		out.Created = true
		log.Info("inbound lead created", "lead_id", lead.ID, "status", lead.Status, "score", lead.Score)
		return out, nil
	case err != nil:
		return nil, storeError("finding lead", err)
	}

	lead.ID = existing.ID
	lead.Notes = strings.TrimSpace(existing.Notes + "\n\n---\n[" + now.Format(time.RFC3339) + "] New inbound call:\n" + notes)
	if err := uc.Leads.UpdateDetails(ctx, lead); err != nil {
		return nil, storeError("updating lead", err)
	}
	changed, err := uc.Leads.Transition(ctx, lead.ID, out.Status)
	if err != nil {
		return nil, storeError("updating lead status", err)
	}
	if !changed {
		out.Status = existing.Status
	}
	out.LeadID = lead.ID
	log.Info("inbound lead updated", "lead_id", lead.ID, "status", out.Status, "score", lead.Score)
	return out, nil
}

func (uc *ReconcileInboundCallUseCase) tenant(ctx context.Context, c RetellCall) (string, error) {
	if id := metaString(c.Metadata, "client_user_id", "user_id"); id != "" {
		return id, nil
	}
	if c.AgentID == "" {
		return "", nil
	}
	b, err := uc.Businesses.FindByAgentID(ctx, c.AgentID)
	if errors.Is(err, entity.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeError("finding business by agent", err)
	}
	return b.UserID, nil
}

func inboundScore(vars map[string]any, a *RetellCallAnalysis) entity.LeadScore {
	switch urgency := strings.ToLower(metaString(vars, "urgency")); {
	case urgency == "today" || urgency == "urgent":
		return entity.LeadHot
	case normalizeSentiment(a.UserSentiment) == entity.SentimentPositive && a.CallSuccessful:
		return entity.LeadHot
	case metaString(vars, "caller_name") != "" && metaString(vars, "caller_phone") != "":
		return entity.LeadWarm
	case metaString(vars, "business_name") != "" && metaString(vars, "caller_email") != "":
		return entity.LeadWarm
	}
	return entity.LeadCold
}

func inboundStatus(a *RetellCallAnalysis) entity.LeadStatus {
	summary := strings.ToLower(a.CallSummary)
	switch {
	case strings.Contains(summary, "scheduled") || strings.Contains(summary, "booked"):
		return entity.LeadMeetingScheduled
	case normalizeSentiment(a.UserSentiment) == entity.SentimentPositive || a.CallSuccessful:
		return entity.LeadInterested
	}
	return entity.LeadContacted
}

var (
	stateOnly    = regexp.MustCompile(`^[A-Za-z]{2}$`)
	stateZip     = regexp.MustCompile(`^([A-Za-z]{2})\s+\d{5}(-\d{4})?$`)
	cityAndState = regexp.MustCompile(`([A-Za-z\s]+),?\s*([A-Z]{2})\s*\d*`)
)

// parseAddress pulls city and state out of "123 Main St, San Diego, CA" style
// addresses.
func parseAddress(address string) (city, state string) {
	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return "", ""
	}

	last, prev := parts[len(parts)-1], parts[len(parts)-2]
	if stateOnly.MatchString(last) {
		return prev, strings.ToUpper(last)
	}
	if m := stateZip.FindStringSubmatch(last); m != nil {
		return prev, strings.ToUpper(m[1])
	}
	if m := cityAndState.FindStringSubmatch(last); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return prev, ""
}

func inboundNotes(c RetellCall, vars map[string]any, a *RetellCallAnalysis, at time.Time) string {
	lines := []string{
		"Inbound Call - " + at.Format(time.RFC1123),
		"From: " + firstNonEmpty(c.FromNumber, "Unknown"),
	}
	for _, f := range []struct{ label, key string }{
		{"Service Needed", "service_type"},
		{"Address", "service_address"},
		{"Urgency", "urgency"},
		{"Message", "message_reason"},
		{"Best callback time", "callback_time"},
		{"Service Area", "location"},
		{"Call Volume", "call_volume"},
		{"Current Setup", "current_situation"},
	} {
		if v := metaString(vars, f.key); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", f.label, v))
		}
	}
	if a.CallSummary != "" {
		lines = append(lines, "\nSummary: "+a.CallSummary)
	}
	if a.UserSentiment != "" {
		lines = append(lines, "Sentiment: "+a.UserSentiment)
	}
	if c.RecordingURL != "" {
		lines = append(lines, "\nRecording: "+c.RecordingURL)
	}
	return strings.Join(lines, "\n")
}
