package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
)

func newReminderJob(t *testing.T, repo *fakeBillingRepo, notifier *fakeCronNotifier, now time.Time) ReportingJob {
	t.Helper()
	job, err := NewPaymentReminderJob(PaymentReminderJobParams{
		Logger:        testLogger(),
		Repo:          repo,
		Notifications: notifier,
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewPaymentReminderJob: %v", err)
	}
	return job
}

func TestPaymentReminderNotifiesAndBumpsCount(t *testing.T) {
	now := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	charge := models.Charge{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Amount:     decimal.RequireFromString("45.00"),
		Status:     enums.ChargeStatusPending,
		ExpiresAt:  now.Add(3 * time.Hour),
	}
	repo := newFakeBillingRepo()
	repo.remindersDue = []models.Charge{charge}
	notifier := &fakeCronNotifier{}

	report, err := newReminderJob(t, repo, notifier, now).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if notifier.reminded != 1 {
		t.Fatalf("expected one reminder, got %d", notifier.reminded)
	}
	if len(repo.reminderBumps) != 1 || repo.reminderBumps[0] != charge.ID {
		t.Fatalf("reminder count not bumped for charge: %v", repo.reminderBumps)
	}
	if report.Processed != 1 || report.Results[0].Outcome != "reminded" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestPaymentReminderEmptyBatch(t *testing.T) {
	repo := newFakeBillingRepo()
	notifier := &fakeCronNotifier{}

	report, err := newReminderJob(t, repo, notifier, time.Now()).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Processed != 0 || notifier.reminded != 0 {
		t.Fatalf("nothing due means nothing sent, got %+v", report)
	}
}
