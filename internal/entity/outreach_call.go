package entity

import (
	"context"
	"time"
)

type CallStatus string

const (
	CallPending    CallStatus = "pending"
	CallInProgress CallStatus = "in_progress"
	CallCompleted  CallStatus = "completed"
	CallFailed     CallStatus = "failed"
	CallNoAnswer   CallStatus = "no_answer"
	CallVoicemail  CallStatus = "voicemail"
)

type CallSentiment string

const (
	SentimentPositive CallSentiment = "positive"
	SentimentNeutral  CallSentiment = "neutral"
	SentimentNegative CallSentiment = "negative"
)

type OutreachCall struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	LeadID          string        `json:"lead_id"`
	CampaignID      string        `json:"campaign_id,omitempty"`
	ExternalCallID  string        `json:"external_call_id"`
	Status          CallStatus    `json:"status"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
	Transcript      string        `json:"transcript,omitempty"`
	RecordingURL    string        `json:"recording_url,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	Sentiment       CallSentiment `json:"sentiment,omitempty"`
	MeetingBooked   bool          `json:"meeting_booked"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CallUpdate is the provider snapshot applied to a call. Empty strings and nil
// pointers leave the stored value untouched. MeetingBooked only ever sets the
// flag, it never clears it.
type CallUpdate struct {
	Status          CallStatus
	DurationSeconds *int
	Transcript      string
	RecordingURL    string
	Summary         string
	Sentiment       CallSentiment
	MeetingBooked   bool
}

type OutreachCallRepositoryInterface interface {
	FindByExternalID(ctx context.Context, externalCallID string) (*OutreachCall, error)
	ApplyUpdate(ctx context.Context, externalCallID string, u CallUpdate) (bool, error)
	MarkMeetingBooked(ctx context.Context, id string) error
}
