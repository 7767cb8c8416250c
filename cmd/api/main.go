package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/agendali/payments-backend/api/routes"
	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/internal/cron"
	"github.com/agendali/payments-backend/internal/notifications"
	mpwebhook "github.com/agendali/payments-backend/internal/webhooks/mercadopago"
	"github.com/agendali/payments-backend/pkg/config"
	"github.com/agendali/payments-backend/pkg/db"
	"github.com/agendali/payments-backend/pkg/logger"
	"github.com/agendali/payments-backend/pkg/mercadopago"
	"github.com/agendali/payments-backend/pkg/migrate"
	"github.com/agendali/payments-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	mpClient, err := mercadopago.NewClient(context.Background(), cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado pago client", err)
		os.Exit(1)
	}

	repo := billing.NewRepository(dbClient.DB())

	chargeService := charges.NewService(charges.ServiceParams{
		Repo:      repo,
		Provider:  mpClient,
		Logger:    logg,
		ChargeTTL: cfg.Billing.ChargeTTL,
		RetryTTL:  cfg.Billing.RetryChargeTTL,
	})
	notificationService := notifications.NewService(repo, logg)

	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Repo:              repo,
		Provider:          mpClient,
		TransactionRunner: dbClient,
		ReplayGuard:       redisClient,
		ReplayTTL:         cfg.Billing.WebhookReplayTTL,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registerJobs(registry, cfg, logg, dbClient, repo, chargeService, notificationService)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			RedisPinger:   redisClient,
			Charges:       chargeService,
			Notifications: notificationService,
			Webhooks:      webhookService,
			Jobs:          registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// registerJobs wires the billing jobs so operators can trigger a pass through
// the API without waiting for the cron worker.
func registerJobs(
	registry *cron.Registry,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	repo billing.Repository,
	chargeService charges.Service,
	notificationService notifications.Service,
) {
	policy := billing.RetryPolicy{
		MaxAttempts: cfg.Billing.MaxPaymentAttempts,
		RetryWindow: cfg.Billing.RetryChargeTTL,
	}

	if job, err := cron.NewPaymentRetryJob(cron.PaymentRetryJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repo:          repo,
		Charges:       chargeService,
		Notifications: notificationService,
		Policy:        policy,
	}); err != nil {
		logg.Error(context.Background(), "failed to build payment retry job", err)
	} else {
		registry.Register(job)
	}
	if job, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger: logg,
		Repo:   repo,
	}); err != nil {
		logg.Error(context.Background(), "failed to build subscription expiry job", err)
	} else {
		registry.Register(job)
	}
	if job, err := cron.NewRecurringBillingJob(cron.RecurringBillingJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repo:          repo,
		Charges:       chargeService,
		Notifications: notificationService,
		Policy:        policy,
	}); err != nil {
		logg.Error(context.Background(), "failed to build recurring billing job", err)
	} else {
		registry.Register(job)
	}
	if job, err := cron.NewPaymentReminderJob(cron.PaymentReminderJobParams{
		Logger:        logg,
		Repo:          repo,
		Notifications: notificationService,
		Window:        cfg.Billing.ReminderWindow,
		MaxReminders:  cfg.Billing.MaxReminders,
	}); err != nil {
		logg.Error(context.Background(), "failed to build payment reminder job", err)
	} else {
		registry.Register(job)
	}
}
