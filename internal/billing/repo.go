package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/agendali/payments-backend/pkg/db"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a billing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCharge(ctx context.Context, charge *models.Charge) (*models.Charge, error) {
	if err := r.db.WithContext(ctx).Create(charge).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "charges_provider_payment_id_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "charge already recorded for provider payment")
		}
		return nil, err
	}
	return charge, nil
}

func (r *repository) FindChargeByID(ctx context.Context, id uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&charge).Error
	if err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *repository) FindChargeByProviderPaymentID(ctx context.Context, providerID string) (*models.Charge, error) {
	var charge models.Charge
	err := r.db.WithContext(ctx).
		Where("provider_payment_id = ?", providerID).
		First(&charge).Error
	if err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *repository) ListCharges(ctx context.Context, params pagination.Params, filters ChargeFilters) (*ChargeList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Charge{})
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var charges []models.Charge
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&charges).Error
	if err != nil {
		return nil, err
	}

	next := ""
	if len(charges) > limit {
		charges = charges[:limit]
		last := charges[len(charges)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ChargeList{Charges: charges, NextCursor: next}, nil
}

func (r *repository) UpdateCharge(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Charge{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) MarkChargeExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Charge{}).
		Where("id = ? AND status = ?", id, enums.ChargeStatusPending).
		Update("status", enums.ChargeStatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkChargePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Charge{}).
		Where("id = ? AND status = ?", id, enums.ChargeStatusPending).
		Updates(map[string]any{
			"status":  enums.ChargeStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkChargeCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Charge{}).
		Where("id = ? AND status = ?", id, enums.ChargeStatusPending).
		Update("status", enums.ChargeStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListExpiredPendingCharges(ctx context.Context, now time.Time, limit int) ([]models.Charge, error) {
	var charges []models.Charge
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.ChargeStatusPending, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *repository) ListChargesDueReminder(ctx context.Context, now time.Time, window time.Duration, maxReminders int, coolOff time.Duration, limit int) ([]models.Charge, error) {
	var charges []models.Charge
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.ChargeStatusPending).
		Where("expires_at > ? AND expires_at <= ?", now, now.Add(window)).
		Where("reminder_count < ?", maxReminders).
		Where("last_reminder_at IS NULL OR last_reminder_at <= ?", now.Add(-coolOff)).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *repository) IncrementChargeReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Charge{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reminder_count":   gorm.Expr("reminder_count + 1"),
			"last_reminder_at": at,
		}).Error
}

func (r *repository) CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpdateSubscription(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListSubscriptionsDueForBilling(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	query := r.db.WithContext(ctx).
		Where("status = ? AND next_billing_date <= ?", enums.SubscriptionStatusActive, now).
		Order("next_billing_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status IN ? AND current_period_end < ?",
			[]enums.SubscriptionStatus{enums.SubscriptionStatusTrial, enums.SubscriptionStatusActive}, now).
		Update("status", enums.SubscriptionStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) CreateBillingPlan(ctx context.Context, plan *models.BillingPlan) (*models.BillingPlan, error) {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *repository) FindBillingPlanByID(ctx context.Context, id string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *repository) FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if err := r.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return nil, err
	}
	return appointment, nil
}

func (r *repository) FindAppointmentByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *repository) UpdateAppointmentPaymentStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentPaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("payment_status", status).Error
}

func (r *repository) CreateFinancialRecord(ctx context.Context, record *models.FinancialRecord) (*models.FinancialRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) UpdateFinancialRecordStatus(ctx context.Context, id uuid.UUID, status enums.FinancialRecordStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.FinancialRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) CreateNotification(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (r *repository) ListNotificationsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
