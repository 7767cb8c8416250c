package mpwebhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/mercadopago"
)

type fakeRepo struct {
	billing.Repository

	charges      map[string]*models.Charge
	appointments map[uuid.UUID]enums.AppointmentPaymentStatus
	records      map[uuid.UUID]enums.FinancialRecordStatus
	cancelled    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		charges:      map[string]*models.Charge{},
		appointments: map[uuid.UUID]enums.AppointmentPaymentStatus{},
		records:      map[uuid.UUID]enums.FinancialRecordStatus{},
	}
}

func (f *fakeRepo) WithTx(_ *gorm.DB) billing.Repository { return f }

func (f *fakeRepo) FindChargeByProviderPaymentID(_ context.Context, providerID string) (*models.Charge, error) {
	if c, ok := f.charges[providerID]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) MarkChargePaid(_ context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	for _, c := range f.charges {
		if c.ID == id {
			if c.Status != enums.ChargeStatusPending {
				return false, nil
			}
			c.Status = enums.ChargeStatusPaid
			c.PaidAt = &paidAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) MarkChargeCancelled(_ context.Context, id uuid.UUID) (bool, error) {
	for _, c := range f.charges {
		if c.ID == id {
			if c.Status != enums.ChargeStatusPending {
				return false, nil
			}
			c.Status = enums.ChargeStatusCancelled
			f.cancelled++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) UpdateAppointmentPaymentStatus(_ context.Context, id uuid.UUID, status enums.AppointmentPaymentStatus) error {
	f.appointments[id] = status
	return nil
}

func (f *fakeRepo) UpdateFinancialRecordStatus(_ context.Context, id uuid.UUID, status enums.FinancialRecordStatus) error {
	f.records[id] = status
	return nil
}

type fakeProvider struct {
	payments map[string]*mercadopago.Payment
	err      error
	fetches  int
}

func (f *fakeProvider) GetPayment(_ context.Context, id string) (*mercadopago.Payment, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.payments[id]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeGuard struct {
	seen map[string]bool
}

func newFakeGuard() *fakeGuard { return &fakeGuard{seen: map[string]bool{}} }

func (g *fakeGuard) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *fakeGuard) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(g.seen, k)
	}
	return nil
}

func (g *fakeGuard) WebhookReplayKey(provider, eventID string) string {
	return "agl:webhook:" + provider + ":" + eventID
}

func paymentNotification(id string) Notification {
	n := Notification{Type: "payment"}
	n.Data.ID = id
	return n
}

func newTestService(t *testing.T, repo *fakeRepo, provider *fakeProvider, guard replayGuard, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:              repo,
		Provider:          provider,
		TransactionRunner: fakeTxRunner{},
		ReplayGuard:       guard,
		Now:               func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedPendingCharge(repo *fakeRepo, providerID string) *models.Charge {
	apptID := uuid.New()
	recordID := uuid.New()
	charge := &models.Charge{
		ID:                uuid.New(),
		CustomerID:        uuid.New(),
		AppointmentID:     &apptID,
		FinancialRecordID: &recordID,
		ProviderPaymentID: &providerID,
		Status:            enums.ChargeStatusPending,
	}
	repo.charges[providerID] = charge
	return charge
}

func TestNonPaymentTypeIsIgnored(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(t, newFakeRepo(), provider, nil, time.Now())

	if err := svc.HandleNotification(context.Background(), Notification{Type: "merchant_order"}); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if provider.fetches != 0 {
		t.Fatal("provider must not be fetched for non-payment types")
	}
}

func TestApprovedPaymentSettlesCharge(t *testing.T) {
	repo := newFakeRepo()
	charge := seedPendingCharge(repo, "101")
	approved := time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"101": {ID: 101, Status: "approved", DateApproved: &approved},
	}}

	svc := newTestService(t, repo, provider, nil, time.Now())
	if err := svc.HandleNotification(context.Background(), paymentNotification("101")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	if charge.Status != enums.ChargeStatusPaid {
		t.Fatalf("unexpected status %s", charge.Status)
	}
	if charge.PaidAt == nil || !charge.PaidAt.Equal(approved) {
		t.Fatalf("paid_at must come from the provider, got %v", charge.PaidAt)
	}
	if repo.appointments[*charge.AppointmentID] != enums.AppointmentPaymentStatusPaid {
		t.Fatal("linked appointment must be marked paid")
	}
	if repo.records[*charge.FinancialRecordID] != enums.FinancialRecordStatusCompleted {
		t.Fatal("linked financial record must be completed")
	}
}

func TestApprovedWithoutDateApprovedUsesNow(t *testing.T) {
	repo := newFakeRepo()
	charge := seedPendingCharge(repo, "102")
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"102": {ID: 102, Status: "approved"},
	}}
	now := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)

	svc := newTestService(t, repo, provider, nil, now)
	if err := svc.HandleNotification(context.Background(), paymentNotification("102")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if charge.PaidAt == nil || !charge.PaidAt.Equal(now) {
		t.Fatalf("expected paid_at %s, got %v", now, charge.PaidAt)
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	charge := seedPendingCharge(repo, "103")
	approved := time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"103": {ID: 103, Status: "approved", DateApproved: &approved},
	}}
	guard := newFakeGuard()

	svc := newTestService(t, repo, provider, guard, time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.HandleNotification(ctx, paymentNotification("103")); err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
	}

	if provider.fetches != 1 {
		t.Fatalf("guard must suppress duplicate fetches, got %d", provider.fetches)
	}
	if charge.Status != enums.ChargeStatusPaid {
		t.Fatalf("unexpected status %s", charge.Status)
	}
	if !charge.PaidAt.Equal(approved) {
		t.Fatal("paid_at must not move under replay")
	}
}

func TestTerminalChargeIsNeverDowngraded(t *testing.T) {
	repo := newFakeRepo()
	charge := seedPendingCharge(repo, "104")
	charge.Status = enums.ChargeStatusPaid
	paidAt := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	charge.PaidAt = &paidAt
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"104": {ID: 104, Status: "rejected"},
	}}

	svc := newTestService(t, repo, provider, nil, time.Now())
	if err := svc.HandleNotification(context.Background(), paymentNotification("104")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if charge.Status != enums.ChargeStatusPaid {
		t.Fatalf("terminal status must hold, got %s", charge.Status)
	}
}

func TestRejectedPaymentCancelsCharge(t *testing.T) {
	repo := newFakeRepo()
	charge := seedPendingCharge(repo, "105")
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"105": {ID: 105, Status: "rejected"},
	}}

	svc := newTestService(t, repo, provider, nil, time.Now())
	if err := svc.HandleNotification(context.Background(), paymentNotification("105")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if charge.Status != enums.ChargeStatusCancelled {
		t.Fatalf("unexpected status %s", charge.Status)
	}
	if charge.PaidAt != nil {
		t.Fatal("cancelled charge must not carry paid_at")
	}
}

func TestUnknownProviderStatusLeavesPending(t *testing.T) {
	repo := newFakeRepo()
	charge := seedPendingCharge(repo, "106")
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"106": {ID: 106, Status: "authorized_weirdness"},
	}}

	svc := newTestService(t, repo, provider, nil, time.Now())
	if err := svc.HandleNotification(context.Background(), paymentNotification("106")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if charge.Status != enums.ChargeStatusPending {
		t.Fatalf("unexpected status %s", charge.Status)
	}
}

func TestMissingChargeIsBenign(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{payments: map[string]*mercadopago.Payment{
		"107": {ID: 107, Status: "approved"},
	}}

	svc := newTestService(t, repo, provider, nil, time.Now())
	if err := svc.HandleNotification(context.Background(), paymentNotification("107")); err != nil {
		t.Fatalf("expected benign no-op, got %v", err)
	}
}

func TestProviderNotFoundIsBenign(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeProvider{}, nil, time.Now())
	if err := svc.HandleNotification(context.Background(), paymentNotification("999")); err != nil {
		t.Fatalf("expected benign no-op, got %v", err)
	}
}

func TestFetchFailureReleasesReplayGuard(t *testing.T) {
	repo := newFakeRepo()
	seedPendingCharge(repo, "108")
	provider := &fakeProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "provider down")}
	guard := newFakeGuard()

	svc := newTestService(t, repo, provider, guard, time.Now())
	ctx := context.Background()

	if err := svc.HandleNotification(ctx, paymentNotification("108")); err == nil {
		t.Fatal("expected error from provider failure")
	}
	if len(guard.seen) != 0 {
		t.Fatal("guard key must be released so redelivery can retry")
	}
}

func TestMissingPaymentIDRejected(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeProvider{}, nil, time.Now())
	err := svc.HandleNotification(context.Background(), paymentNotification("  "))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
