package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCanceled  MeetingStatus = "canceled"
)

const (
	DefaultMeetingDuration = 15
	DefaultMeetingType     = "strategy_call"
)

type Meeting struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	LeadID          string        `json:"lead_id"`
	CallID          string        `json:"call_id,omitempty"`
	ExternalRef     string        `json:"external_ref"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMinutes int           `json:"duration_minutes"`
	MeetingType     string        `json:"meeting_type"`
	Location        string        `json:"location,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Status          MeetingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}

func NewMeeting(userID, leadID string, scheduledAt time.Time) *Meeting {
	return &Meeting{
		ID:              uuid.New().String(),
		UserID:          userID,
		LeadID:          leadID,
		ScheduledAt:     scheduledAt.UTC(),
		DurationMinutes: DefaultMeetingDuration,
		MeetingType:     DefaultMeetingType,
		Status:          MeetingScheduled,
		CreatedAt:       time.Now().UTC(),
	}
}

// MeetingRef builds an idempotency key for bookings that carry no provider
// identifier of their own.
func MeetingRef(kind, id string, scheduledAt time.Time) string {
	return kind + ":" + id + ":" + scheduledAt.UTC().Format(time.RFC3339)
}

type MeetingRepositoryInterface interface {
	// Upsert inserts the meeting or refreshes the row sharing its ExternalRef.
	// The stored ID is written back into m.
	Upsert(ctx context.Context, m *Meeting) error
}
