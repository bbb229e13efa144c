package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenlineai/webhook-reconciler/internal/infra/http/handlers"
	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
)

type routerConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string

	// BookingRateLimit is requests per client IP per minute on the agent
	// booking endpoint.
	BookingRateLimit int

	Health        *handlers.HealthHandler
	Stripe        *handlers.StripeWebhookHandler
	Calls         *handlers.CallWebhookHandler
	Meetings      *handlers.MeetingWebhookHandler
	Bookings      *handlers.BookingWebhookHandler
	Inbound       *handlers.InboundWebhookHandler
	CreateBooking *handlers.CreateBookingHandler
}

func newRouter(cfg routerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.Logger != nil {
		r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelInfo),
			NoColor: true,
		}))
	} else {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Stripe-Signature", "Calendly-Webhook-Signature"},
		MaxAge:         300,
	}))

	r.Get("/health", cfg.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/stripe/webhook", cfg.Stripe.Handle)
		r.Get("/stripe/webhook", handlers.Descriptor("/api/stripe/webhook",
			"checkout.session.completed",
			"customer.subscription.created",
			"customer.subscription.updated",
			"customer.subscription.deleted",
			"invoice.payment_failed",
		))

		r.Post("/calls/webhook", cfg.Calls.Handle)
		r.Get("/calls/webhook", handlers.Descriptor("/api/calls/webhook", "call_started", "call_ended", "call_analyzed"))

		r.Post("/meetings/webhook", cfg.Meetings.Handle)
		r.Get("/meetings/webhook", handlers.Descriptor("/api/meetings/webhook", "meeting_booked"))

		r.Post("/calendly/webhook", cfg.Bookings.Handle)
		r.Get("/calendly/webhook", handlers.Descriptor("/api/calendly/webhook", "invitee.created", "BOOKING_CREATED"))

		r.Post("/inbound/webhook", cfg.Inbound.Handle)
		r.Get("/inbound/webhook", handlers.Descriptor("/api/inbound/webhook", "call_started", "call_ended", "call_analyzed"))

		r.With(middleware.RateLimit(cfg.BookingRateLimit, time.Minute)).
			Post("/calendar/create-booking", cfg.CreateBooking.Handle)
		r.Get("/calendar/create-booking", handlers.Descriptor("/api/calendar/create-booking", "create_booking"))
	})

	return r
}
