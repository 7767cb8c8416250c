package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/pkg/enums"
)

// Subscription persists a recurring billing agreement for a customer.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID           uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	PlanID               string                   `gorm:"column:plan_id;not null"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	CurrentPeriodStart   time.Time                `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end;not null;index"`
	NextBillingDate      time.Time                `gorm:"column:next_billing_date;not null;index"`
	FailedPaymentsCount  int                      `gorm:"column:failed_payments_count;not null;default:0"`
	LastPaymentAttemptAt *time.Time               `gorm:"column:last_payment_attempt_at"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
