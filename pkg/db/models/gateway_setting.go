package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// GatewaySetting is one versioned configuration entry for a payment
// provider (server key, client key, merchant id, mode flags).
type GatewaySetting struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider  enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null;uniqueIndex:idx_gateway_settings_provider_key"`
	Key       string                `gorm:"column:key;not null;uniqueIndex:idx_gateway_settings_provider_key"`
	Value     string                `gorm:"column:value;not null"`
	Version   int                   `gorm:"column:version;not null;default:1"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
