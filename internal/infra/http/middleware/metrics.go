package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by provider, normalized kind and outcome",
		},
		[]string{"provider", "kind", "outcome"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification delivery attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	inboundCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_calls_total",
			Help: "Inbound call webhooks by lead score",
		},
		[]string{"score"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps the path label bounded: unmatched paths collapse into
// one series.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// webhookKinds lists the kind labels webhook counters accept. Event names
// come from request bodies, so anything else collapses into "other".
var webhookKinds = map[string]bool{
	"subscription_activated": true,
	"subscription_changed":   true,
	"subscription_canceled":  true,
	"payment_failed":         true,
	"call_updated":           true,
	"meeting_booked":         true,
	"ignored":                true,
	"call_started":           true,
	"call_ended":             true,
	"call_analyzed":          true,
	"inbound_call_started":   true,
	"inbound_call_ended":     true,
	"inbound_call_analyzed":  true,
	"inbound_function_call":  true,
	"invitee.created":        true,
	"invitee.canceled":       true,
	"BOOKING_CREATED":        true,
	"BOOKING_CANCELLED":      true,
	"BOOKING_RESCHEDULED":    true,
}

func RecordWebhook(provider, kind, outcome string) {
	webhookEvents.WithLabelValues(provider, webhookKind(kind), outcome).Inc()
}

func webhookKind(kind string) string {
	switch {
	case kind == "":
		return "unknown"
	case webhookKinds[kind]:
		return kind
	}
	return "other"
}

func RecordNotification(kind string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	notificationsSent.WithLabelValues(kind, outcome).Inc()
}

func RecordInboundCall(score string) {
	if score == "" {
		score = "none"
	}
	inboundCalls.WithLabelValues(score).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
