package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
	"github.com/worklane/worklane-backend/pkg/types"
)

// Order is a payable unit of work tied to a client project. Its ID is the
// provider-correlatable order number sent to the payment gateway.
type Order struct {
	ID              string            `gorm:"column:id;primaryKey"`
	ProjectID       uuid.UUID         `gorm:"column:project_id;type:uuid;not null"`
	AmountCents     int64             `gorm:"column:amount_cents;not null"`
	Currency        string            `gorm:"column:currency;not null;default:'IDR'"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Provider        enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null"`
	PaymentType     *string           `gorm:"column:payment_type"`
	TransactionID   *string           `gorm:"column:transaction_id"`
	ReferralCode    *string           `gorm:"column:referral_code"`
	PaymentMetadata types.JSONMap     `gorm:"column:payment_metadata;type:jsonb;serializer:json"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// DigitalOrder mirrors Order for downloadable products instead of projects.
type DigitalOrder struct {
	ID              string            `gorm:"column:id;primaryKey"`
	ProductID       uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	AmountCents     int64             `gorm:"column:amount_cents;not null"`
	Currency        string            `gorm:"column:currency;not null;default:'IDR'"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Provider        enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null"`
	PaymentType     *string           `gorm:"column:payment_type"`
	TransactionID   *string           `gorm:"column:transaction_id"`
	ReferralCode    *string           `gorm:"column:referral_code"`
	PaymentMetadata types.JSONMap     `gorm:"column:payment_metadata;type:jsonb;serializer:json"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
