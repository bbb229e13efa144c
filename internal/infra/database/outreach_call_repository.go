package database

import (
	"context"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const callsTable = "outreach_calls"

type OutreachCallRepository struct {
	Store RowStore
}

func NewOutreachCallRepository(store RowStore) *OutreachCallRepository {
	return &OutreachCallRepository{Store: store}
}

func (r *OutreachCallRepository) FindByExternalID(ctx context.Context, externalCallID string) (*entity.OutreachCall, error) {
	if externalCallID == "" {
		return nil, errNotFound
	}
	row, err := selectOne(ctx, r.Store, Query{
		Table:   callsTable,
		Filters: []Filter{Eq("external_call_id", externalCallID)},
	})
	if err != nil {
		return nil, err
	}
	return callFromRow(row), nil
}

// ApplyUpdate writes the snapshot keyed by external_call_id, so replaying the
// same delivery leaves the row unchanged.
func (r *OutreachCallRepository) ApplyUpdate(ctx context.Context, externalCallID string, u entity.CallUpdate) (bool, error) {
	values := Row{"updated_at": time.Now().UTC()}
	if u.Status != "" {
		values["status"] = string(u.Status)
	}
	if u.DurationSeconds != nil {
		values["duration_seconds"] = *u.DurationSeconds
	}
	if u.Transcript != "" {
		values["transcript"] = u.Transcript
	}
	if u.RecordingURL != "" {
		values["recording_url"] = u.RecordingURL
	}
	if u.Summary != "" {
		values["summary"] = u.Summary
	}
	if u.Sentiment != "" {
		values["sentiment"] = string(u.Sentiment)
	}
	if u.MeetingBooked {
		values["meeting_booked"] = true
	}

	n, err := r.Store.Update(ctx,
		Query{Table: callsTable, Filters: []Filter{Eq("external_call_id", externalCallID)}},
		values,
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OutreachCallRepository) MarkMeetingBooked(ctx context.Context, id string) error {
	_, err := r.Store.Update(ctx,
		Query{Table: callsTable, Filters: []Filter{Eq("id", id)}},
		Row{"meeting_booked": true, "updated_at": time.Now().UTC()},
	)
	return err
}

func callFromRow(r Row) *entity.OutreachCall {
	return &entity.OutreachCall{
		ID:              getString(r, "id"),
		UserID:          getString(r, "user_id"),
		LeadID:          getString(r, "lead_id"),
		CampaignID:      getString(r, "campaign_id"),
		ExternalCallID:  getString(r, "external_call_id"),
		Status:          entity.CallStatus(getString(r, "status")),
		DurationSeconds: getIntPtr(r, "duration_seconds"),
		Transcript:      getString(r, "transcript"),
		RecordingURL:    getString(r, "recording_url"),
		Summary:         getString(r, "summary"),
		Sentiment:       entity.CallSentiment(getString(r, "sentiment")),
		MeetingBooked:   getBool(r, "meeting_booked"),
		CreatedAt:       getTime(r, "created_at"),
		UpdatedAt:       getTime(r, "updated_at"),
	}
}
