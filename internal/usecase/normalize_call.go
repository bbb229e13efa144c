package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const (
	RetellCallStarted  = "call_started"
	RetellCallEnded    = "call_ended"
	RetellCallAnalyzed = "call_analyzed"
)

type RetellTranscriptLine struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type RetellCallAnalysis struct {
	CallSummary        string         `json:"call_summary"`
	UserSentiment      string         `json:"user_sentiment"`
	CallSuccessful     bool           `json:"call_successful"`
	InVoicemail        bool           `json:"in_voicemail"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data"`
}

type RetellCall struct {
	CallID              string                 `json:"call_id"`
	AgentID             string                 `json:"agent_id"`
	CallStatus          string                 `json:"call_status"`
	CallType            string                 `json:"call_type"`
	Direction           string                 `json:"direction"`
	FromNumber          string                 `json:"from_number"`
	ToNumber            string                 `json:"to_number"`
	StartTimestamp      int64                  `json:"start_timestamp"`
	EndTimestamp        int64                  `json:"end_timestamp"`
	DisconnectionReason string                 `json:"disconnection_reason"`
	Transcript          string                 `json:"transcript"`
	TranscriptObject    []RetellTranscriptLine `json:"transcript_object"`
	RecordingURL        string                 `json:"recording_url"`
	Metadata            map[string]any         `json:"metadata"`
	DynamicVariables    map[string]any         `json:"retell_llm_dynamic_variables"`
	CallAnalysis        *RetellCallAnalysis    `json:"call_analysis"`
}

// RetellCallWebhook is the body Retell posts for call lifecycle events.
type RetellCallWebhook struct {
	Event string     `json:"event"`
	Call  RetellCall `json:"call"`
}

// callStatusTable maps every status string Retell (and the legacy voice
// provider) has been seen to send.
var callStatusTable = map[string]entity.CallStatus{
	"registered":    entity.CallPending,
	"queued":        entity.CallPending,
	"ringing":       entity.CallInProgress,
	"ongoing":       entity.CallInProgress,
	"in_progress":   entity.CallInProgress,
	"in-progress":   entity.CallInProgress,
	"ended":         entity.CallCompleted,
	"completed":     entity.CallCompleted,
	"error":         entity.CallFailed,
	"failed":        entity.CallFailed,
	"canceled":      entity.CallFailed,
	"not_connected": entity.CallFailed,
	"no_answer":     entity.CallNoAnswer,
	"no-answer":     entity.CallNoAnswer,
	"busy":          entity.CallNoAnswer,
	"voicemail":     entity.CallVoicemail,
}

var disconnectionTable = map[string]entity.CallStatus{
	"dial_no_answer":    entity.CallNoAnswer,
	"dial_busy":         entity.CallNoAnswer,
	"voicemail_reached": entity.CallVoicemail,
	"dial_failed":       entity.CallFailed,
}

// NormalizeCallStatus maps a provider status onto CallStatus. It is total:
// unknown values map to completed and known is false so callers can log the
// lossy default. A call that ended is refined by its disconnection reason.
func NormalizeCallStatus(status, disconnectionReason string) (entity.CallStatus, bool) {
	s, known := callStatusTable[strings.ToLower(strings.TrimSpace(status))]
	if !known {
		s = entity.CallCompleted
	}

	if s == entity.CallCompleted {
		reason := strings.ToLower(disconnectionReason)
		if refined, ok := disconnectionTable[reason]; ok {
			return refined, known
		}
		if strings.HasPrefix(reason, "error_") {
			return entity.CallFailed, known
		}
	}
	return s, known
}

func normalizeSentiment(s string) entity.CallSentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return entity.SentimentPositive
	case "negative":
		return entity.SentimentNegative
	case "neutral":
		return entity.SentimentNeutral
	}
	return ""
}

// NormalizeCallEvent is pure: the same payload always yields the same event.
func NormalizeCallEvent(p RetellCallWebhook) NormalizedEvent {
	c := p.Call
	status, known := NormalizeCallStatus(c.CallStatus, c.DisconnectionReason)

	fields := &CallFields{
		Status:       status,
		RawStatus:    c.CallStatus,
		KnownStatus:  known,
		Transcript:   callTranscript(c),
		RecordingURL: c.RecordingURL,
	}

	if c.StartTimestamp > 0 && c.EndTimestamp >= c.StartTimestamp {
		d := int((c.EndTimestamp - c.StartTimestamp) / 1000)
		fields.Duration = &d
	}

	if a := c.CallAnalysis; a != nil {
		fields.Summary = a.CallSummary
		fields.Sentiment = normalizeSentiment(a.UserSentiment)
		if a.InVoicemail && status == entity.CallCompleted {
			fields.Status = entity.CallVoicemail
		}
		fields.MeetingBooked = structuredMeetingFlag(a.CustomAnalysisData)
	}
	if !fields.MeetingBooked {
		fields.MeetingBooked = DetectMeetingBooked(fields.Transcript)
	}

	var occurred time.Time
	if c.EndTimestamp > 0 {
		occurred = time.UnixMilli(c.EndTimestamp).UTC()
	} else if c.StartTimestamp > 0 {
		occurred = time.UnixMilli(c.StartTimestamp).UTC()
	}

	return NormalizedEvent{
		Provider:   ProviderRetell,
		EventType:  p.Event,
		Kind:       KindCallUpdated,
		OccurredAt: occurred,
		Refs: EntityRefs{
			ExternalCallID: c.CallID,
			LeadID:         metaString(c.Metadata, "leadId", "lead_id"),
			UserID:         metaString(c.Metadata, "userId", "user_id", "client_user_id"),
		},
		Call: fields,
	}
}

// callTranscript prefers the structured transcript, rendered one
// "role: content" line per utterance.
func callTranscript(c RetellCall) string {
	if len(c.TranscriptObject) == 0 {
		return c.Transcript
	}
	var b strings.Builder
	for _, line := range c.TranscriptObject {
		fmt.Fprintf(&b, "%s: %s\n", line.Role, line.Content)
	}
	return b.String()
}

func structuredMeetingFlag(data map[string]any) bool {
	for _, key := range []string{"meeting_booked", "appointment_booked"} {
		switch v := data[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") {
				return true
			}
		}
	}
	return false
}

func metaString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
