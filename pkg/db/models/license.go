package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// License binds a purchased product to a maximum number of device
// activations. The activations counter and the device_activations rows must
// never disagree; both are only ever mutated inside one transaction.
type License struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key            string              `gorm:"column:key;not null;unique"`
	ProductID      uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	OrderID        *string             `gorm:"column:order_id;uniqueIndex:idx_licenses_order_id"`
	Status         enums.LicenseStatus `gorm:"column:status;type:license_status;not null;default:'active'"`
	MaxActivations int                 `gorm:"column:max_activations;not null"`
	Activations    int                 `gorm:"column:activations;not null;default:0"`
	ExpiresAt      *time.Time          `gorm:"column:expires_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// DeviceActivation is one device bound to a license. The composite unique
// index makes repeat activations by the same device collapse into one row.
type DeviceActivation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseID uuid.UUID `gorm:"column:license_id;type:uuid;not null;uniqueIndex:idx_device_activations_license_device"`
	DeviceID  string    `gorm:"column:device_id;not null;uniqueIndex:idx_device_activations_license_device"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
