package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a licensable digital good sold outside project work.
type Product struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug                  string    `gorm:"column:slug;not null;unique"`
	Name                  string    `gorm:"column:name;not null"`
	PriceCents            int64     `gorm:"column:price_cents;not null"`
	Currency              string    `gorm:"column:currency;not null;default:'IDR'"`
	DefaultMaxActivations int       `gorm:"column:default_max_activations;not null;default:1"`
	LicenseValidityDays   *int      `gorm:"column:license_validity_days"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
