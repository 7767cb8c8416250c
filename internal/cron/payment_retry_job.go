package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	"github.com/agendali/payments-backend/pkg/logger"
)

const retryBatchLimit = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type chargeCreator interface {
	Create(ctx context.Context, params charges.CreateChargeParams) (*models.Charge, error)
}

type retryNotifier interface {
	PaymentFailed(ctx context.Context, customerID uuid.UUID, attempt int)
	SubscriptionSuspended(ctx context.Context, customerID uuid.UUID, subscriptionID uuid.UUID)
}

// PaymentRetryJobParams configure the payment retry job.
type PaymentRetryJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repo          billing.Repository
	Charges       chargeCreator
	Notifications retryNotifier
	Policy        billing.RetryPolicy
	Now           func() time.Time
}

// NewPaymentRetryJob builds the job that expires lapsed charges and drives
// the bounded payment retry loop for subscriptions.
func NewPaymentRetryJob(params PaymentRetryJobParams) (ReportingJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repo required")
	}
	if params.Charges == nil {
		return nil, fmt.Errorf("charge creator required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifier required")
	}
	policy := params.Policy
	if policy.MaxAttempts <= 0 {
		policy = billing.DefaultRetryPolicy()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &paymentRetryJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		charges:  params.Charges,
		notifier: params.Notifications,
		policy:   policy,
		now:      now,
	}, nil
}

type paymentRetryJob struct {
	logg     *logger.Logger
	db       txRunner
	repo     billing.Repository
	charges  chargeCreator
	notifier retryNotifier
	policy   billing.RetryPolicy
	now      func() time.Time
}

func (j *paymentRetryJob) Name() string { return "payment-retry" }

func (j *paymentRetryJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

// Process expires every pending charge past its deadline. Charges tied to a
// subscription feed the retry loop; standalone charges just expire.
func (j *paymentRetryJob) Process(ctx context.Context) (Report, error) {
	now := j.now().UTC()
	lapsed, err := j.repo.ListExpiredPendingCharges(ctx, now, retryBatchLimit)
	if err != nil {
		return Report{}, fmt.Errorf("query lapsed charges: %w", err)
	}

	var report Report
	var errs []error
	for _, charge := range lapsed {
		outcome, rowErr := j.processCharge(ctx, charge, now)
		if rowErr != nil {
			report.addError(charge.ID.String(), rowErr)
			errs = append(errs, rowErr)
			continue
		}
		report.add(charge.ID.String(), outcome)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": report.Processed, "failures": len(errs)})
	j.logg.Info(logCtx, "payment retry pass complete")
	return report, multierr.Combine(errs...)
}

func (j *paymentRetryJob) processCharge(ctx context.Context, charge models.Charge, now time.Time) (string, error) {
	flipped, err := j.repo.MarkChargeExpired(ctx, charge.ID)
	if err != nil {
		return "", fmt.Errorf("expire charge: %w", err)
	}
	if !flipped {
		// Another run already handled it.
		return "skipped", nil
	}

	if charge.SubscriptionID == nil {
		logCtx := j.logg.WithChargeID(ctx, charge.ID.String())
		j.logg.Info(logCtx, "standalone charge expired")
		return "expired", nil
	}

	sub, err := j.repo.FindSubscriptionByID(ctx, *charge.SubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "expired", nil
		}
		return "", fmt.Errorf("load subscription: %w", err)
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return "expired", nil
	}

	counter := sub.FailedPaymentsCount + 1
	suspend := j.policy.ShouldSuspend(counter)

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		updates := map[string]any{
			"failed_payments_count":   counter,
			"last_payment_attempt_at": now,
		}
		if suspend {
			updates["status"] = enums.SubscriptionStatusPaymentFailed
		}
		return repo.UpdateSubscription(ctx, sub.ID, updates)
	})
	if err != nil {
		return "", fmt.Errorf("update subscription: %w", err)
	}

	if suspend {
		j.notifier.SubscriptionSuspended(ctx, sub.CustomerID, sub.ID)
		logCtx := j.logg.WithSubscriptionID(ctx, sub.ID.String())
		logCtx = j.logg.WithField(logCtx, "failed_payments_count", counter)
		j.logg.Warn(logCtx, "subscription suspended after repeated payment failures")
		return "suspended", nil
	}

	originalID := charge.ID
	_, err = j.charges.Create(ctx, charges.CreateChargeParams{
		CustomerID:       charge.CustomerID,
		Amount:           charge.Amount,
		SubscriptionID:   charge.SubscriptionID,
		RetryAttempt:     counter,
		OriginalChargeID: &originalID,
	})
	if err != nil {
		return "", fmt.Errorf("create retry charge: %w", err)
	}

	j.notifier.PaymentFailed(ctx, charge.CustomerID, counter)
	return "retried", nil
}
