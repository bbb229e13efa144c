package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

type LeadStatus string

const (
	LeadNew              LeadStatus = "new"
	LeadContacted        LeadStatus = "contacted"
	LeadInterested       LeadStatus = "interested"
	LeadMeetingScheduled LeadStatus = "meeting_scheduled"
	LeadNotInterested    LeadStatus = "not_interested"
	LeadNoAnswer         LeadStatus = "no_answer"
	LeadInvalid          LeadStatus = "invalid"
)

var AllLeadStatuses = []LeadStatus{
	LeadNew,
	LeadContacted,
	LeadInterested,
	LeadMeetingScheduled,
	LeadNotInterested,
	LeadNoAnswer,
	LeadInvalid,
}

// leadStatusRank orders statuses by engagement. Statuses sharing a rank are
// peers: the latest outcome replaces the previous one.
var leadStatusRank = map[LeadStatus]int{
	LeadNew:              0,
	LeadContacted:        1,
	LeadNoAnswer:         1,
	LeadInterested:       2,
	LeadNotInterested:    2,
	LeadMeetingScheduled: 3,
}

func (s LeadStatus) Valid() bool {
	for _, v := range AllLeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanAdvanceTo reports whether an automated event may move a lead from s to
// next. meeting_scheduled is terminal for automation; invalid only yields to
// a booked meeting.
func (s LeadStatus) CanAdvanceTo(next LeadStatus) bool {
	if s == next || !next.Valid() {
		return false
	}
	if s == LeadMeetingScheduled {
		return false
	}
	if s == LeadInvalid || next == LeadInvalid {
		return next == LeadMeetingScheduled
	}

	cur, ok := leadStatusRank[s]
	if !ok {
		// Unknown legacy values are treated like new.
		cur = 0
	}
	return leadStatusRank[next] >= cur
}

// LeadStatusesAdvancingTo lists every status that may be replaced by next.
func LeadStatusesAdvancingTo(next LeadStatus) []LeadStatus {
	var out []LeadStatus
	for _, s := range AllLeadStatuses {
		if s.CanAdvanceTo(next) {
			out = append(out, s)
		}
	}
	return out
}

type LeadScore string

const (
	LeadHot  LeadScore = "hot"
	LeadWarm LeadScore = "warm"
	LeadCold LeadScore = "cold"
)

type Lead struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	BusinessName  string     `json:"business_name"`
	ContactName   string     `json:"contact_name,omitempty"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	Website       string     `json:"website,omitempty"`
	Address       string     `json:"address,omitempty"`
	City          string     `json:"city,omitempty"`
	State         string     `json:"state,omitempty"`
	Zip           string     `json:"zip,omitempty"`
	Industry      string     `json:"industry,omitempty"`
	Status        LeadStatus `json:"status"`
	Score         LeadScore  `json:"lead_score,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Source        string     `json:"source,omitempty"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewLead(userID, businessName, phone string) *Lead {
	now := time.Now().UTC()
	return &Lead{
		ID:           uuid.New().String(),
		UserID:       userID,
		BusinessName: businessName,
		Phone:        phone,
		Status:       LeadNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// LeadLookup selects a single lead by one contact key. UserID scopes the
// search to a tenant when set.
type LeadLookup struct {
	UserID string
	Phone  string
	Email  string
}

type LeadRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByPhone(ctx context.Context, userID, phone string) (*Lead, error)
	FindByEmail(ctx context.Context, userID, email string) (*Lead, error)
	Create(ctx context.Context, lead *Lead) error
	// Transition moves the lead to status only when its current status may
	// advance to it. It reports whether a row changed.
	Transition(ctx context.Context, id string, status LeadStatus) (bool, error)
	TouchLastContacted(ctx context.Context, id string, at time.Time) error
	UpdateDetails(ctx context.Context, lead *Lead) error
}
