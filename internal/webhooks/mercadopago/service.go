package mpwebhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
	"github.com/agendali/payments-backend/pkg/mercadopago"
)

const providerName = "mercadopago"

// Notification is the envelope Mercado Pago posts to the webhook endpoint.
type Notification struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// replayGuard suppresses duplicate provider fetches for notifications that
// were already processed. Processing stays replay-safe without it.
type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookReplayKey(provider, eventID string) string
}

// ServiceParams wires the reconciler dependencies.
type ServiceParams struct {
	Repo              billing.Repository
	Provider          paymentFetcher
	TransactionRunner txRunner
	ReplayGuard       replayGuard
	ReplayTTL         time.Duration
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service reconciles provider payment notifications against stored charges.
type Service struct {
	repo        billing.Repository
	provider    paymentFetcher
	txRunner    txRunner
	replayGuard replayGuard
	replayTTL   time.Duration
	logger      *logger.Logger
	now         func() time.Time
}

// NewService builds the webhook reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	ttl := params.ReplayTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:        params.Repo,
		provider:    params.Provider,
		txRunner:    params.TransactionRunner,
		replayGuard: params.ReplayGuard,
		replayTTL:   ttl,
		logger:      params.Logger,
		now:         now,
	}, nil
}

// HandleNotification processes one provider notification. Unknown charge
// references and non-payment notification types are accepted no-ops so the
// provider stops redelivering them.
func (s *Service) HandleNotification(ctx context.Context, notification Notification) error {
	if notification.Type != "payment" {
		return nil
	}
	paymentID := strings.TrimSpace(notification.Data.ID)
	if paymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	replayKey := ""
	if s.replayGuard != nil {
		replayKey = s.replayGuard.WebhookReplayKey(providerName, paymentID)
		fresh, err := s.replayGuard.SetNX(ctx, replayKey, "1", s.replayTTL)
		if err == nil && !fresh {
			s.logInfo(ctx, paymentID, "webhook replay suppressed")
			return nil
		}
		// Guard errors are ignored; reconciliation is idempotent anyway.
	}

	if err := s.reconcile(ctx, paymentID); err != nil {
		if replayKey != "" {
			_ = s.replayGuard.Del(ctx, replayKey)
		}
		return err
	}
	return nil
}

func (s *Service) reconcile(ctx context.Context, paymentID string) error {
	payment, err := s.provider.GetPayment(ctx, paymentID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.logInfo(ctx, paymentID, "payment unknown to provider, ignoring")
			return nil
		}
		return err
	}

	charge, err := s.repo.FindChargeByProviderPaymentID(ctx, payment.ProviderID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logInfo(ctx, paymentID, "no charge for provider payment, ignoring")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load charge")
	}

	target := targetStatus(payment.Status)
	if charge.Status.IsTerminal() || target == enums.ChargeStatusPending {
		return nil
	}

	switch target {
	case enums.ChargeStatusPaid:
		return s.settle(ctx, charge, payment)
	case enums.ChargeStatusCancelled:
		_, err := s.repo.MarkChargeCancelled(ctx, charge.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel charge")
		}
		return nil
	default:
		return nil
	}
}

// settle flips the charge to paid and reapplies its side effects in one
// transaction. Side effects are plain overwrites, so a replay that loses the
// compare-and-swap still leaves consistent rows.
func (s *Service) settle(ctx context.Context, charge *models.Charge, payment *mercadopago.Payment) error {
	paidAt := s.now()
	if payment.DateApproved != nil {
		paidAt = *payment.DateApproved
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		flipped, err := repo.MarkChargePaid(ctx, charge.ID, paidAt)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}

		if charge.AppointmentID != nil {
			if err := repo.UpdateAppointmentPaymentStatus(ctx, *charge.AppointmentID, enums.AppointmentPaymentStatusPaid); err != nil {
				return err
			}
		}
		if charge.FinancialRecordID != nil {
			if err := repo.UpdateFinancialRecordStatus(ctx, *charge.FinancialRecordID, enums.FinancialRecordStatusCompleted); err != nil {
				return err
			}
		}
		return nil
	})
}

// targetStatus maps provider payment statuses onto charge statuses. Unknown
// statuses leave the charge pending.
func targetStatus(providerStatus string) enums.ChargeStatus {
	switch providerStatus {
	case "approved":
		return enums.ChargeStatusPaid
	case "pending", "in_process":
		return enums.ChargeStatusPending
	case "rejected", "cancelled", "refunded", "charged_back":
		return enums.ChargeStatusCancelled
	default:
		return enums.ChargeStatusPending
	}
}

func (s *Service) logInfo(ctx context.Context, paymentID, msg string) {
	if s.logger == nil {
		return
	}
	ctx = s.logger.WithFields(ctx, map[string]any{"provider_payment_id": paymentID})
	s.logger.Info(ctx, msg)
}
