package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	"github.com/agendali/payments-backend/pkg/pagination"
)

// ChargeFilters narrows charge listings.
type ChargeFilters struct {
	CustomerID *uuid.UUID
	Status     *enums.ChargeStatus
}

// ChargeList is one page of charges plus the cursor for the next page.
type ChargeList struct {
	Charges    []models.Charge
	NextCursor string
}

// Repository defines persistence operations for the billing tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCharge(ctx context.Context, charge *models.Charge) (*models.Charge, error)
	FindChargeByID(ctx context.Context, id uuid.UUID) (*models.Charge, error)
	FindChargeByProviderPaymentID(ctx context.Context, providerID string) (*models.Charge, error)
	ListCharges(ctx context.Context, params pagination.Params, filters ChargeFilters) (*ChargeList, error)
	UpdateCharge(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// MarkChargeExpired flips a pending charge to expired. It reports false
	// when another writer got there first.
	MarkChargeExpired(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkChargePaid flips a pending charge to paid with its paid_at stamp.
	MarkChargePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)
	// MarkChargeCancelled flips a pending charge to cancelled.
	MarkChargeCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	ListExpiredPendingCharges(ctx context.Context, now time.Time, limit int) ([]models.Charge, error)
	ListChargesDueReminder(ctx context.Context, now time.Time, window time.Duration, maxReminders int, coolOff time.Duration, limit int) ([]models.Charge, error)
	IncrementChargeReminder(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListSubscriptionsDueForBilling(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	// ExpireLapsedSubscriptions bulk-expires trial/active subscriptions whose
	// current period ended before now. Returns the number of rows touched.
	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error)

	CreateBillingPlan(ctx context.Context, plan *models.BillingPlan) (*models.BillingPlan, error)
	FindBillingPlanByID(ctx context.Context, id string) (*models.BillingPlan, error)

	CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)

	CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	FindAppointmentByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	UpdateAppointmentPaymentStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentPaymentStatus) error

	CreateFinancialRecord(ctx context.Context, record *models.FinancialRecord) (*models.FinancialRecord, error)
	UpdateFinancialRecordStatus(ctx context.Context, id uuid.UUID, status enums.FinancialRecordStatus) error

	CreateNotification(ctx context.Context, notification *models.Notification) (*models.Notification, error)
	ListNotificationsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Notification, error)
}
