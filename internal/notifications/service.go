package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/internal/billing"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	"github.com/agendali/payments-backend/pkg/logger"
)

// Service writes customer-facing notification rows. Writers treat it as
// fire-and-forget: a failed insert is logged and never fails the caller.
type Service interface {
	PaymentReminder(ctx context.Context, customerID uuid.UUID, chargeID uuid.UUID, hoursLeft int)
	PaymentFailed(ctx context.Context, customerID uuid.UUID, attempt int)
	SubscriptionSuspended(ctx context.Context, customerID uuid.UUID, subscriptionID uuid.UUID)
	SubscriptionExpired(ctx context.Context, customerID uuid.UUID, subscriptionID uuid.UUID)
	List(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Notification, error)
}

type service struct {
	repo   billing.Repository
	logger *logger.Logger
}

// NewService builds the notification writer.
func NewService(repo billing.Repository, logg *logger.Logger) Service {
	return &service{repo: repo, logger: logg}
}

func (s *service) PaymentReminder(ctx context.Context, customerID uuid.UUID, chargeID uuid.UUID, hoursLeft int) {
	s.insert(ctx, &models.Notification{
		CustomerID: customerID,
		Type:       enums.NotificationPaymentReminder,
		Title:      "Payment expiring soon",
		Body:       fmt.Sprintf("Your PIX payment expires in about %d hours. Pay it to keep your booking.", hoursLeft),
	}, map[string]any{"charge_id": chargeID.String()})
}

func (s *service) PaymentFailed(ctx context.Context, customerID uuid.UUID, attempt int) {
	s.insert(ctx, &models.Notification{
		CustomerID: customerID,
		Type:       enums.NotificationPaymentFailed,
		Title:      "Payment not completed",
		Body:       fmt.Sprintf("We could not confirm your payment (attempt %d). A new PIX code was issued.", attempt),
	}, map[string]any{"attempt": attempt})
}

func (s *service) SubscriptionSuspended(ctx context.Context, customerID uuid.UUID, subscriptionID uuid.UUID) {
	s.insert(ctx, &models.Notification{
		CustomerID: customerID,
		Type:       enums.NotificationSubscriptionSuspended,
		Title:      "Subscription suspended",
		Body:       "Your subscription was suspended after repeated payment failures. Settle the open charge to reactivate it.",
	}, map[string]any{"subscription_id": subscriptionID.String()})
}

func (s *service) SubscriptionExpired(ctx context.Context, customerID uuid.UUID, subscriptionID uuid.UUID) {
	s.insert(ctx, &models.Notification{
		CustomerID: customerID,
		Type:       enums.NotificationSubscriptionExpired,
		Title:      "Subscription expired",
		Body:       "Your subscription period ended. Renew to keep access.",
	}, map[string]any{"subscription_id": subscriptionID.String()})
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Notification, error) {
	return s.repo.ListNotificationsByCustomer(ctx, customerID, limit)
}

func (s *service) insert(ctx context.Context, row *models.Notification, fields map[string]any) {
	row.ID = uuid.New()
	if _, err := s.repo.CreateNotification(ctx, row); err != nil {
		if s.logger != nil {
			logCtx := s.logger.WithFields(ctx, fields)
			logCtx = s.logger.WithFields(logCtx, map[string]any{
				"customer_id":       row.CustomerID.String(),
				"notification_type": row.Type,
			})
			s.logger.Error(logCtx, "notification insert failed", err)
		}
	}
}
