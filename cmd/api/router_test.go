package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
	"github.com/greenlineai/webhook-reconciler/internal/infra/database"
	"github.com/greenlineai/webhook-reconciler/internal/infra/http/handlers"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewMemoryStore()

	leads := database.NewLeadRepository(store)
	calls := database.NewOutreachCallRepository(store)
	meetings := database.NewMeetingRepository(store)
	profiles := database.NewProfileRepository(store)
	businesses := database.NewBusinessRepository(store)

	catalog, err := entity.NewPlanCatalog(nil)
	require.NoError(t, err)

	resolver := usecase.NewLeadResolver(leads, calls, profiles, "", logger)
	meetingUC := usecase.NewReconcileMeetingUseCase(resolver, leads, calls, meetings, nil, logger)

	return newRouter(routerConfig{
		Logger: logger,
		Health: handlers.NewHealthHandler(store, nil, nil),
		Stripe: handlers.NewStripeWebhookHandler(usecase.NewProcessStripeEventUseCase(
			usecase.NewStripeVerifier("", 0), catalog,
			usecase.NewReconcileSubscriptionUseCase(profiles, logger), nil, logger,
		), logger),
		Calls:    handlers.NewCallWebhookHandler(usecase.NewReconcileCallUseCase(calls, leads, logger), logger),
		Meetings: handlers.NewMeetingWebhookHandler(meetingUC, logger),
		Bookings: handlers.NewBookingWebhookHandler(
			usecase.NewCalendlyVerifier("", 5*time.Minute, logger), meetingUC, logger,
		),
		Inbound: handlers.NewInboundWebhookHandler(usecase.NewReconcileInboundCallUseCase(leads, businesses, logger), logger),
		CreateBooking: handlers.NewCreateBookingHandler(usecase.NewCreateBookingUseCase(
			businesses, nil, nil, resolver, meetings, leads, nil, logger,
		), logger),
	})
}

func TestRouterDescriptors(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{
		"/api/stripe/webhook",
		"/api/calls/webhook",
		"/api/meetings/webhook",
		"/api/calendly/webhook",
		"/api/inbound/webhook",
		"/api/calendar/create-booking",
	} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"endpoint":"`+path+`"`)
		})
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouterStripeWithoutSecret(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=00")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterRejectsOversizedBody(t *testing.T) {
	router := testRouter(t)

	body := `{"event":"call_ended","call":{"transcript":"` + strings.Repeat("a", handlers.MaxBodyBytes) + `"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calls/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/calls/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
