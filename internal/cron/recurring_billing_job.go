package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	"github.com/agendali/payments-backend/pkg/logger"
)

const billingBatchLimit = 500

// RecurringBillingJobParams configure the recurring billing job.
type RecurringBillingJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repo          billing.Repository
	Charges       chargeCreator
	Notifications retryNotifier
	Policy        billing.RetryPolicy
	Now           func() time.Time
}

// NewRecurringBillingJob builds the job that issues the periodic charge for
// every subscription whose billing date has arrived.
func NewRecurringBillingJob(params RecurringBillingJobParams) (ReportingJob, error) {
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
	return &recurringBillingJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		charges:  params.Charges,
		notifier: params.Notifications,
		policy:   policy,
		now:      now,
	}, nil
}

type recurringBillingJob struct {
	logg     *logger.Logger
	db       txRunner
	repo     billing.Repository
	charges  chargeCreator
	notifier retryNotifier
	policy   billing.RetryPolicy
	now      func() time.Time
}

func (j *recurringBillingJob) Name() string { return "recurring-billing" }

func (j *recurringBillingJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

func (j *recurringBillingJob) Process(ctx context.Context) (Report, error) {
	now := j.now().UTC()
	due, err := j.repo.ListSubscriptionsDueForBilling(ctx, now, billingBatchLimit)
	if err != nil {
		return Report{}, fmt.Errorf("query due subscriptions: %w", err)
	}

	var report Report
	var errs []error
	for _, sub := range due {
		outcome, rowErr := j.billSubscription(ctx, sub, now)
		if rowErr != nil {
			report.addError(sub.ID.String(), rowErr)
			errs = append(errs, rowErr)
			continue
		}
		report.add(sub.ID.String(), outcome)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": report.Processed, "failures": len(errs)})
	j.logg.Info(logCtx, "recurring billing pass complete")
	return report, multierr.Combine(errs...)
}

func (j *recurringBillingJob) billSubscription(ctx context.Context, sub models.Subscription, now time.Time) (string, error) {
	plan, err := j.repo.FindBillingPlanByID(ctx, sub.PlanID)
	if err != nil {
		return "", fmt.Errorf("load plan %q: %w", sub.PlanID, err)
	}

	subID := sub.ID
	_, err = j.charges.Create(ctx, charges.CreateChargeParams{
		CustomerID:     sub.CustomerID,
		Amount:         plan.PriceAmount,
		Description:    plan.Name,
		SubscriptionID: &subID,
		Recurring:      true,
	})
	if err != nil {
		return j.recordBillingFailure(ctx, sub, now, err)
	}

	// The next date anchors on its previous value, not on when this pass
	// actually ran, so a monthly plan billed on Jan 1 renews on Feb 1 even
	// when the job fires on Jan 5.
	next := plan.Interval.Advance(sub.NextBillingDate)
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		return repo.UpdateSubscription(ctx, sub.ID, map[string]any{
			"current_period_start":    sub.NextBillingDate,
			"current_period_end":      next,
			"next_billing_date":       next,
			"last_payment_attempt_at": now,
		})
	})
	if err != nil {
		return "", fmt.Errorf("advance billing period: %w", err)
	}
	return "billed", nil
}

func (j *recurringBillingJob) recordBillingFailure(ctx context.Context, sub models.Subscription, now time.Time, cause error) (string, error) {
	counter := sub.FailedPaymentsCount + 1
	suspend := j.policy.ShouldSuspend(counter)

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
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
		return "", fmt.Errorf("record billing failure: %w", err)
	}

	if suspend {
		j.notifier.SubscriptionSuspended(ctx, sub.CustomerID, sub.ID)
	}
	return "", fmt.Errorf("create recurring charge: %w", cause)
}
