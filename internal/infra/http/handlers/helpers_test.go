package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
	"github.com/greenlineai/webhook-reconciler/internal/infra/database"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var seedTime = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

type testStore struct {
	*database.MemoryStore
	leads      *database.LeadRepository
	calls      *database.OutreachCallRepository
	meetings   *database.MeetingRepository
	profiles   *database.ProfileRepository
	businesses *database.BusinessRepository
}

func newTestStore() *testStore {
	store := database.NewMemoryStore()
	return &testStore{
		MemoryStore: store,
		leads:       database.NewLeadRepository(store),
		calls:       database.NewOutreachCallRepository(store),
		meetings:    database.NewMeetingRepository(store),
		profiles:    database.NewProfileRepository(store),
		businesses:  database.NewBusinessRepository(store),
	}
}

func (s *testStore) resolver() *usecase.LeadResolver {
	return usecase.NewLeadResolver(s.leads, s.calls, s.profiles, "", discardLogger())
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

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
