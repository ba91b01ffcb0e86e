package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// PayoutRequest snapshots an affiliate withdrawal. At most one pending
// request may exist per affiliate at any time.
type PayoutRequest struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AffiliateID       uuid.UUID          `gorm:"column:affiliate_id;type:uuid;not null"`
	AmountCents       int64              `gorm:"column:amount_cents;not null"`
	Status            enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	BankName          string             `gorm:"column:bank_name;not null"`
	BankAccountName   string             `gorm:"column:bank_account_name;not null"`
	BankAccountNumber string             `gorm:"column:bank_account_number;not null"`
	DecidedAt         *time.Time         `gorm:"column:decided_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
