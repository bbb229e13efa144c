package database

import (
	"context"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const businessTable = "business_onboarding"

type BusinessRepository struct {
	Store RowStore
}

func NewBusinessRepository(store RowStore) *BusinessRepository {
	return &BusinessRepository{Store: store}
}

func (r *BusinessRepository) FindByAgentID(ctx context.Context, agentID string) (*entity.Business, error) {
	if agentID == "" {
		return nil, errNotFound
	}
	row, err := selectOne(ctx, r.Store, Query{
		Table:   businessTable,
		Filters: []Filter{Eq("retell_agent_id", agentID)},
	})
	if err != nil {
		return nil, err
	}

	eventTypeID, _ := getInt(row, "cal_com_event_type_id")
	return &entity.Business{
		ID:                    getString(row, "id"),
		UserID:                getString(row, "user_id"),
		BusinessName:          getString(row, "business_name"),
		RetellAgentID:         getString(row, "retell_agent_id"),
		CalComAPIKeyEncrypted: getString(row, "cal_com_api_key_encrypted"),
		CalComEventTypeID:     eventTypeID,
		Timezone:              getString(row, "timezone"),
	}, nil
}
