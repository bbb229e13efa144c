package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
	"github.com/greenlineai/webhook-reconciler/internal/infra/database"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store      *database.MemoryStore
	leads      *database.LeadRepository
	calls      *database.OutreachCallRepository
	meetings   *database.MeetingRepository
	profiles   *database.ProfileRepository
	businesses *database.BusinessRepository
	resolver   *usecase.LeadResolver
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	f := &fixture{
		store:      store,
		leads:      database.NewLeadRepository(store),
		calls:      database.NewOutreachCallRepository(store),
		meetings:   database.NewMeetingRepository(store),
		profiles:   database.NewProfileRepository(store),
		businesses: database.NewBusinessRepository(store),
		notifier:   &recordingNotifier{},
	}
	f.resolver = usecase.NewLeadResolver(f.leads, f.calls, f.profiles, "", discardLogger())
	return f
}

var seedTime = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

func (f *fixture) seedProfile(id, email string) {
	f.store.Seed("profiles", database.Row{
		"id":         id,
		"email":      email,
		"plan":       "leads",
		"created_at": seedTime,
	})
}

func (f *fixture) seedLead(id, userID, status, phone, email string) {
	f.store.Seed("leads", database.Row{
		"id":            id,
		"user_id":       userID,
		"business_name": "Acme Plumbing",
		"status":        status,
		"phone":         phone,
		"email":         email,
		"created_at":    seedTime,
	})
}

func (f *fixture) seedCall(id, externalID, leadID string) {
	f.store.Seed("outreach_calls", database.Row{
		"id":               id,
		"user_id":          "user-1",
		"lead_id":          leadID,
		"external_call_id": externalID,
		"status":           "pending",
		"meeting_booked":   false,
		"created_at":       seedTime,
	})
}

func (f *fixture) lead(t *testing.T, id string) *entity.Lead {
	t.Helper()
	l, err := f.leads.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("lead %s: %v", id, err)
	}
	return l
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) all() []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.Notification(nil), n.sent...)
}
