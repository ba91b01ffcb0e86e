package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// Project is the unit of agency work unblocked by a settled order.
type Project struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID      uuid.UUID                  `gorm:"column:client_id;type:uuid;not null"`
	Name          string                     `gorm:"column:name;not null"`
	Status        enums.ProjectStatus        `gorm:"column:status;type:project_status;not null;default:'payment_pending'"`
	PaymentStatus enums.ProjectPaymentStatus `gorm:"column:payment_status;type:project_payment_status;not null;default:'unpaid'"`
	EstimateID    *uuid.UUID                 `gorm:"column:estimate_id;type:uuid"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
