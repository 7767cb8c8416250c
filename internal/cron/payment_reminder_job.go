package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/pkg/logger"
)

const reminderBatchLimit = 500

type reminderNotifier interface {
	PaymentReminder(ctx context.Context, customerID uuid.UUID, chargeID uuid.UUID, hoursLeft int)
}

// PaymentReminderJobParams configure the pre-expiry reminder job.
type PaymentReminderJobParams struct {
	Logger        *logger.Logger
	Repo          billing.Repository
	Notifications reminderNotifier
	Window        time.Duration
	MaxReminders  int
	CoolOff       time.Duration
	Now           func() time.Time
}

// NewPaymentReminderJob builds the job that nudges payers whose pending
// charge is about to expire.
func NewPaymentReminderJob(params PaymentReminderJobParams) (ReportingJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repo required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifier required")
	}
	window := params.Window
	if window <= 0 {
		window = 6 * time.Hour
	}
	maxReminders := params.MaxReminders
	if maxReminders <= 0 {
		maxReminders = 2
	}
	coolOff := params.CoolOff
	if coolOff <= 0 {
		coolOff = 2 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &paymentReminderJob{
		logg:         params.Logger,
		repo:         params.Repo,
		notifier:     params.Notifications,
		window:       window,
		maxReminders: maxReminders,
		coolOff:      coolOff,
		now:          now,
	}, nil
}

type paymentReminderJob struct {
	logg         *logger.Logger
	repo         billing.Repository
	notifier     reminderNotifier
	window       time.Duration
	maxReminders int
	coolOff      time.Duration
	now          func() time.Time
}

func (j *paymentReminderJob) Name() string { return "payment-reminder" }

func (j *paymentReminderJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

func (j *paymentReminderJob) Process(ctx context.Context) (Report, error) {
	now := j.now().UTC()
	due, err := j.repo.ListChargesDueReminder(ctx, now, j.window, j.maxReminders, j.coolOff, reminderBatchLimit)
	if err != nil {
		return Report{}, fmt.Errorf("query charges due reminder: %w", err)
	}

	var report Report
	var errs []error
	for _, charge := range due {
		hoursLeft := int(charge.ExpiresAt.Sub(now).Round(time.Hour) / time.Hour)
		j.notifier.PaymentReminder(ctx, charge.CustomerID, charge.ID, hoursLeft)
		if err := j.repo.IncrementChargeReminder(ctx, charge.ID, now); err != nil {
			rowErr := fmt.Errorf("bump reminder count: %w", err)
			report.addError(charge.ID.String(), rowErr)
			errs = append(errs, rowErr)
			continue
		}
		report.add(charge.ID.String(), "reminded")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": report.Processed, "failures": len(errs)})
	j.logg.Info(logCtx, "payment reminder pass complete")
	return report, multierr.Combine(errs...)
}
