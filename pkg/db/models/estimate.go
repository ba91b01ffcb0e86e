package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// Estimate is the quoted scope an order originates from.
type Estimate struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID       uuid.UUID            `gorm:"column:client_id;type:uuid;not null"`
	Status         enums.EstimateStatus `gorm:"column:status;type:estimate_status;not null;default:'draft'"`
	TotalCostCents int64                `gorm:"column:total_cost_cents;not null;default:0"`
	Currency       string               `gorm:"column:currency;not null;default:'IDR'"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
