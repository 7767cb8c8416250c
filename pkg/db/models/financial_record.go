package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/pkg/enums"
)

// FinancialRecord is the ledger entry settled when its charge is paid.
type FinancialRecord struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID  uuid.UUID                   `gorm:"column:customer_id;type:uuid;not null;index"`
	ChargeID    *uuid.UUID                  `gorm:"column:charge_id;type:uuid"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Status      enums.FinancialRecordStatus `gorm:"column:status;type:financial_record_status;not null;default:'pending'"`
	Description *string                     `gorm:"column:description"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
