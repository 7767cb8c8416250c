package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/pkg/enums"
)

// BillingPlan is read-only reference data for subscription pricing.
type BillingPlan struct {
	ID          string                `gorm:"column:id;primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Status      enums.PlanStatus      `gorm:"column:status;type:plan_status;not null"`
	Interval    enums.BillingInterval `gorm:"column:interval;type:billing_interval;not null"`
	PriceAmount decimal.Decimal       `gorm:"column:price_amount;type:numeric(12,2);not null"`
	Features    pq.StringArray        `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
