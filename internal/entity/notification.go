package entity

import "time"

type NotificationKind string

const (
	NotifyMeetingBooked NotificationKind = "meeting_booked"
)

// Notification is a best-effort message about a reconciled change.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	UserID         string           `json:"user_id"`
	RecipientEmail string           `json:"recipient_email,omitempty"`
	RecipientName  string           `json:"recipient_name,omitempty"`
	LeadID         string           `json:"lead_id,omitempty"`
	LeadName       string           `json:"lead_name,omitempty"`
	LeadPhone      string           `json:"lead_phone,omitempty"`
	LeadEmail      string           `json:"lead_email,omitempty"`
	MeetingID      string           `json:"meeting_id,omitempty"`
	ScheduledAt    time.Time        `json:"scheduled_at"`
	Source         string           `json:"source,omitempty"`
}
