package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/pkg/enums"
)

// Notification is a customer-facing message row consumed by the frontend.
type Notification struct {
	ID         uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index"`
	Type       enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title      string                 `gorm:"column:title;not null"`
	Body       string                 `gorm:"column:body;not null"`
	ReadAt     *time.Time             `gorm:"column:read_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}
