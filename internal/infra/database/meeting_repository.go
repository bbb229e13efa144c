package database

import (
	"context"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const meetingsTable = "meetings"

type MeetingRepository struct {
	Store RowStore
}

func NewMeetingRepository(store RowStore) *MeetingRepository {
	return &MeetingRepository{Store: store}
}

func (r *MeetingRepository) Upsert(ctx context.Context, m *entity.Meeting) error {
	row := Row{
		"user_id":          m.UserID,
		"lead_id":          m.LeadID,
		"call_id":          nullString(m.CallID),
		"external_ref":     m.ExternalRef,
		"scheduled_at":     m.ScheduledAt.UTC(),
		"duration_minutes": m.DurationMinutes,
		"meeting_type":     m.MeetingType,
		"location":         nullString(m.Location),
		"notes":            nullString(m.Notes),
		"status":           string(m.Status),
	}
	if m.ID != "" {
		row["id"] = m.ID
	}

	stored, err := r.Store.Upsert(ctx, meetingsTable, row, "external_ref")
	if err != nil {
		return err
	}
	m.ID = getString(stored, "id")
	m.CreatedAt = getTime(stored, "created_at")
	return nil
}
