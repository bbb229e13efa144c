package entity

import "context"

// Business is a tenant's onboarding record: the voice agent answering for it
// and the scheduler it books into.
type Business struct {
	ID                    string `json:"id"`
	UserID                string `json:"user_id"`
	BusinessName          string `json:"business_name"`
	RetellAgentID         string `json:"retell_agent_id"`
	CalComAPIKeyEncrypted string `json:"-"`
	CalComEventTypeID     int    `json:"cal_com_event_type_id,omitempty"`
	Timezone              string `json:"timezone,omitempty"`
}

func (b *Business) CalendarConfigured() bool {
	return b.CalComAPIKeyEncrypted != "" && b.CalComEventTypeID != 0
}

type BusinessRepositoryInterface interface {
	FindByAgentID(ctx context.Context, agentID string) (*Business, error)
}
