package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/pkg/enums"
)

// Appointment is the booking a charge can settle. Only the payment status is
// owned by this service; scheduling lives in the CRM frontend.
type Appointment struct {
	ID            uuid.UUID                      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID                      `gorm:"column:customer_id;type:uuid;not null;index"`
	StartsAt      time.Time                      `gorm:"column:starts_at;not null"`
	PaymentStatus enums.AppointmentPaymentStatus `gorm:"column:payment_status;type:appointment_payment_status;not null;default:'unpaid'"`
	CreatedAt     time.Time                      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                      `gorm:"column:updated_at;autoUpdateTime"`
}
