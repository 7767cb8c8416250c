package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/pkg/enums"
)

// Charge records a PIX payment request issued through the provider.
//
// SubscriptionID is a weak reference: charges outlive their subscription and
// carry no foreign key to it.
type Charge struct {
	ID                uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID        uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	SubscriptionID    *uuid.UUID         `gorm:"column:subscription_id;type:uuid;index"`
	AppointmentID     *uuid.UUID         `gorm:"column:appointment_id;type:uuid"`
	FinancialRecordID *uuid.UUID         `gorm:"column:financial_record_id;type:uuid"`
	ProviderPaymentID *string            `gorm:"column:provider_payment_id;unique"`
	Amount            decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Status            enums.ChargeStatus `gorm:"column:status;type:charge_status;not null;default:'pending'"`
	QRCode            *string            `gorm:"column:qr_code"`
	ExpiresAt         time.Time          `gorm:"column:expires_at;not null;index"`
	PaidAt            *time.Time         `gorm:"column:paid_at"`
	ReminderCount     int                `gorm:"column:reminder_count;not null;default:0"`
	LastReminderAt    *time.Time         `gorm:"column:last_reminder_at"`
	Metadata          json.RawMessage    `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ChargeMetadata is the decoded shape of the free-form metadata column.
type ChargeMetadata struct {
	RetryAttempt     int        `json:"retry_attempt,omitempty"`
	OriginalChargeID *uuid.UUID `json:"original_charge_id,omitempty"`
	Recurring        bool       `json:"recurring,omitempty"`
	Description      string     `json:"description,omitempty"`
}

// DecodeMetadata unmarshals the metadata column; an empty column decodes to
// the zero value.
func (c *Charge) DecodeMetadata() (ChargeMetadata, error) {
	var meta ChargeMetadata
	if len(c.Metadata) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(c.Metadata, &meta); err != nil {
		return ChargeMetadata{}, err
	}
	return meta, nil
}

// EncodeMetadata marshals meta into the metadata column.
func (c *Charge) EncodeMetadata(meta ChargeMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	c.Metadata = raw
	return nil
}
