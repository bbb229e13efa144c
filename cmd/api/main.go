package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/greenlineai/webhook-reconciler/internal/config"
	"github.com/greenlineai/webhook-reconciler/internal/entity"
	"github.com/greenlineai/webhook-reconciler/internal/infra/cache"
	"github.com/greenlineai/webhook-reconciler/internal/infra/database"
	"github.com/greenlineai/webhook-reconciler/internal/infra/http/handlers"
	"github.com/greenlineai/webhook-reconciler/internal/infra/http/middleware"
	"github.com/greenlineai/webhook-reconciler/internal/infra/integration/calcom"
	"github.com/greenlineai/webhook-reconciler/internal/infra/mail"
	"github.com/greenlineai/webhook-reconciler/internal/infra/queue"
	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)
	logger.Info("starting webhook reconciler", "env", cfg.Server.Env, "addr", cfg.Server.Addr())

	// 1. Store
	var store database.RowStore
	if cfg.DatabaseURL != "" {
		db, err := database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = database.NewPostgresStore(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		store = database.NewMemoryStore()
	}

	leadRepo := database.NewLeadRepository(store)
	callRepo := database.NewOutreachCallRepository(store)
	meetingRepo := database.NewMeetingRepository(store)
	profileRepo := database.NewProfileRepository(store)
	businessRepo := database.NewBusinessRepository(store)

	// 2. Replay ledger
	var (
		ledger    usecase.EventLedger
		cachePing handlers.Pinger
	)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warn("failed to connect to Redis, Stripe replay ledger disabled", "error", err)
		} else {
			defer rdb.Close()
			ledger = cache.NewEventLedger(rdb, cache.DefaultLedgerTTL)
			cachePing = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
	}

	// 3. Notifications: SMTP directly, or through RabbitMQ when a broker is configured
	recordResult := func(n entity.Notification, err error) {
		middleware.RecordNotification(string(n.Kind), err)
	}

	var mailer *mail.EmailSender
	if cfg.SMTP.Enabled() {
		mailer = mail.NewEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		logger.Warn("SMTP not configured, meeting notifications disabled")
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	var (
		sender usecase.NotificationSender
		broker handlers.Broker
	)
	if cfg.AMQPURL != "" && mailer == nil {
		logger.Warn("AMQP_URL set without SMTP, skipping RabbitMQ so notifications do not pile up unconsumed")
	}
	if queueNotifications(cfg.AMQPURL, mailer != nil) {
		mq, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			logger.Warn("failed to connect to RabbitMQ, sending notifications inline", "error", err)
		} else {
			defer mq.Close()
			broker = mq
			sender = queue.NewProducer(mq.Ch)

			worker := queue.NewWorker(mq.Ch, mailer, logger)
			worker.OnResult = recordResult
			go func() {
				if err := worker.Start(workerCtx, queue.QueueName); err != nil {
					logger.Error("notification worker stopped", "error", err)
				}
			}()
		}
	}

	dispatcher := usecase.NewDispatcher(nil, profileRepo, cfg.Outbound, logger)
	switch {
	case sender != nil:
		dispatcher.Sender = sender
	case mailer != nil:
		dispatcher.Sender = mailer
		dispatcher.OnResult = recordResult
	}

	// 4. Integrations
	calClient := calcom.NewClient(cfg.CalCom.APIURL, cfg.Outbound)
	var keys usecase.SecretDecrypter
	if cfg.CalCom.EncryptionKey != "" {
		cipher, err := calcom.NewKeyCipher(cfg.CalCom.EncryptionKey)
		if err != nil {
			logger.Error("invalid CAL_COM_ENCRYPTION_KEY", "error", err)
			os.Exit(1)
		}
		keys = cipher
	} else {
		logger.Warn("CAL_COM_ENCRYPTION_KEY not set, agent bookings will use the fallback message")
	}

	catalog, err := cfg.Stripe.PlanCatalog()
	if err != nil {
		logger.Error("invalid Stripe price configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, Stripe webhooks will be refused")
	}

	// 5. UseCases
	resolver := usecase.NewLeadResolver(leadRepo, callRepo, profileRepo, cfg.DefaultTenant, logger)

	stripeUC := usecase.NewProcessStripeEventUseCase(
		usecase.NewStripeVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.Tolerance),
		catalog,
		usecase.NewReconcileSubscriptionUseCase(profileRepo, logger),
		ledger,
		logger,
	)
	callUC := usecase.NewReconcileCallUseCase(callRepo, leadRepo, logger)
	meetingUC := usecase.NewReconcileMeetingUseCase(resolver, leadRepo, callRepo, meetingRepo, dispatcher, logger)
	inboundUC := usecase.NewReconcileInboundCallUseCase(leadRepo, businessRepo, logger)
	bookingUC := usecase.NewCreateBookingUseCase(businessRepo, calClient, keys, resolver, meetingRepo, leadRepo, dispatcher, logger)

	// 6. Handlers
	router := newRouter(routerConfig{
		Logger:           logger,
		AllowedOrigins:   cfg.AllowedOrigins,
		BookingRateLimit: cfg.BookingRateLimit,
		Health:           handlers.NewHealthHandler(store, broker, cachePing),
		Stripe:           handlers.NewStripeWebhookHandler(stripeUC, logger),
		Calls:            handlers.NewCallWebhookHandler(callUC, logger),
		Meetings:         handlers.NewMeetingWebhookHandler(meetingUC, logger),
		Bookings: handlers.NewBookingWebhookHandler(
			usecase.NewCalendlyVerifier(cfg.Calendly.WebhookSecret, cfg.Stripe.Tolerance, logger),
			meetingUC,
			logger,
		),
		Inbound:       handlers.NewInboundWebhookHandler(inboundUC, logger),
		CreateBooking: handlers.NewCreateBookingHandler(bookingUC, logger),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	dispatcher.Wait()
	stopWorker()

	logger.Info("server stopped")
}

// queueNotifications reports whether notifications go through the broker.
// Without a mailer there is no worker to drain the queue.
func queueNotifications(amqpURL string, hasMailer bool) bool {
	return amqpURL != "" && hasMailer
}
