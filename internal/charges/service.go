package charges

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
	"github.com/agendali/payments-backend/pkg/mercadopago"
	"github.com/agendali/payments-backend/pkg/pagination"
)

// PaymentProvider creates PIX payments upstream.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, params mercadopago.PaymentCreateParams) (*mercadopago.Payment, error)
}

// CreateChargeParams carries everything needed to issue a new charge.
type CreateChargeParams struct {
	CustomerID        uuid.UUID
	Amount            decimal.Decimal
	Description       string
	SubscriptionID    *uuid.UUID
	AppointmentID     *uuid.UUID
	FinancialRecordID *uuid.UUID
	// RetryAttempt > 0 marks the charge as a payment retry and stretches its
	// expiry to the retry window.
	RetryAttempt     int
	OriginalChargeID *uuid.UUID
	Recurring        bool
}

// ListParams selects a page of charges.
type ListParams struct {
	CustomerID *uuid.UUID
	Status     *enums.ChargeStatus
	Limit      int
	Cursor     string
}

// ListResult is one page of charges.
type ListResult struct {
	Charges    []models.Charge
	NextCursor string
}

// Service issues and lists charges.
type Service interface {
	Create(ctx context.Context, params CreateChargeParams) (*models.Charge, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo     billing.Repository
	provider PaymentProvider
	logger   *logger.Logger

	chargeTTL time.Duration
	retryTTL  time.Duration
	now       func() time.Time
}

// ServiceParams wires the charge service dependencies.
type ServiceParams struct {
	Repo      billing.Repository
	Provider  PaymentProvider
	Logger    *logger.Logger
	ChargeTTL time.Duration
	RetryTTL  time.Duration
	Now       func() time.Time
}

// NewService builds the charge service.
func NewService(params ServiceParams) Service {
	ttl := params.ChargeTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	retryTTL := params.RetryTTL
	if retryTTL <= 0 {
		retryTTL = 48 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		provider:  params.Provider,
		logger:    params.Logger,
		chargeTTL: ttl,
		retryTTL:  retryTTL,
		now:       now,
	}
}

func (s *service) Create(ctx context.Context, params CreateChargeParams) (*models.Charge, error) {
	if params.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	customer, err := s.repo.FindCustomerByID(ctx, params.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	now := s.now()
	chargeID := uuid.New()
	expiresAt := now.Add(s.ttlFor(params))

	payment, err := s.provider.CreatePayment(ctx, mercadopago.PaymentCreateParams{
		Amount:            params.Amount,
		Description:       params.Description,
		ExternalReference: chargeID.String(),
		PayerEmail:        customer.Email,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		return nil, err
	}

	providerID := payment.ProviderID()
	charge := &models.Charge{
		ID:                chargeID,
		CustomerID:        params.CustomerID,
		SubscriptionID:    params.SubscriptionID,
		AppointmentID:     params.AppointmentID,
		FinancialRecordID: params.FinancialRecordID,
		ProviderPaymentID: &providerID,
		Amount:            params.Amount,
		Status:            enums.ChargeStatusPending,
		ExpiresAt:         expiresAt,
	}
	if qr := payment.PointOfInteraction.TransactionData.QRCode; qr != "" {
		charge.QRCode = &qr
	}
	if err := charge.EncodeMetadata(models.ChargeMetadata{
		RetryAttempt:     params.RetryAttempt,
		OriginalChargeID: params.OriginalChargeID,
		Recurring:        params.Recurring,
		Description:      params.Description,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode charge metadata")
	}

	created, err := s.repo.CreateCharge(ctx, charge)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist charge")
	}

	if s.logger != nil {
		logCtx := s.logger.WithChargeID(ctx, created.ID.String())
		logCtx = s.logger.WithFields(logCtx, map[string]any{
			"provider_payment_id": providerID,
			"expires_at":          expiresAt,
			"retry_attempt":       params.RetryAttempt,
		})
		s.logger.Info(logCtx, "charge created")
	}

	return created, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid charge status")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	page, err := s.repo.ListCharges(ctx, pagination.Params{Limit: params.Limit, Cursor: params.Cursor}, billing.ChargeFilters{
		CustomerID: params.CustomerID,
		Status:     params.Status,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list charges")
	}

	return &ListResult{Charges: page.Charges, NextCursor: page.NextCursor}, nil
}

func (s *service) ttlFor(params CreateChargeParams) time.Duration {
	if params.RetryAttempt > 0 {
		return s.retryTTL
	}
	return s.chargeTTL
}
