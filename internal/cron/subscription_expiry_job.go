package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/pkg/logger"
)

// SubscriptionExpiryJobParams configure the subscription expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger *logger.Logger
	Repo   billing.Repository
	Now    func() time.Time
}

// NewSubscriptionExpiryJob builds the job that expires subscriptions whose
// current period has lapsed.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (ReportingJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repo required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionExpiryJob{
		logg: params.Logger,
		repo: params.Repo,
		now:  now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	repo billing.Repository
	now  func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

// Process is one bulk status flip. Running it twice in a row is a no-op.
func (j *subscriptionExpiryJob) Process(ctx context.Context) (Report, error) {
	now := j.now().UTC()
	touched, err := j.repo.ExpireLapsedSubscriptions(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": touched})
	j.logg.Info(logCtx, "subscription expiry sweep complete")
	return Report{Processed: int(touched)}, nil
}
