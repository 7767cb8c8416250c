package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/internal/cron"
	"github.com/agendali/payments-backend/internal/notifications"
	"github.com/agendali/payments-backend/pkg/config"
	"github.com/agendali/payments-backend/pkg/db"
	"github.com/agendali/payments-backend/pkg/logger"
	"github.com/agendali/payments-backend/pkg/mercadopago"
	"github.com/agendali/payments-backend/pkg/metrics"
	"github.com/agendali/payments-backend/pkg/migrate"
	"github.com/agendali/payments-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	policy := billing.RetryPolicy{
		MaxAttempts: cfg.Billing.MaxPaymentAttempts,
		RetryWindow: cfg.Billing.RetryChargeTTL,
	}

	retryJob, err := cron.NewPaymentRetryJob(cron.PaymentRetryJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repo:          repo,
		Charges:       chargeService,
		Notifications: notificationService,
		Policy:        policy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build payment retry job", err)
		os.Exit(1)
	}
	expiryJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger: logg,
		Repo:   repo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build subscription expiry job", err)
		os.Exit(1)
	}
	billingJob, err := cron.NewRecurringBillingJob(cron.RecurringBillingJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repo:          repo,
		Charges:       chargeService,
		Notifications: notificationService,
		Policy:        policy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build recurring billing job", err)
		os.Exit(1)
	}
	reminderJob, err := cron.NewPaymentReminderJob(cron.PaymentReminderJobParams{
		Logger:        logg,
		Repo:          repo,
		Notifications: notificationService,
		Window:        cfg.Billing.ReminderWindow,
		MaxReminders:  cfg.Billing.MaxReminders,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build payment reminder job", err)
		os.Exit(1)
	}

	// Expiry runs before retry so the bulk sweep never races the per-charge
	// loop, then billing issues the new period's charges.
	registry := cron.NewRegistry(expiryJob, retryJob, billingJob, reminderJob)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Billing.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
