package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// AffiliateProfile holds the referral identity and the running earnings
// balance. total_earnings_cents >= paid_earnings_cents must hold at all times.
type AffiliateProfile struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	ReferralCode       string                `gorm:"column:referral_code;not null;unique"`
	CommissionRate     decimal.Decimal       `gorm:"column:commission_rate;type:decimal(5,2);not null"`
	TotalEarningsCents int64                 `gorm:"column:total_earnings_cents;not null;default:0"`
	PaidEarningsCents  int64                 `gorm:"column:paid_earnings_cents;not null;default:0"`
	Status             enums.AffiliateStatus `gorm:"column:status;type:affiliate_status;not null;default:'pending'"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableCents is the balance still eligible for payout.
func (a *AffiliateProfile) AvailableCents() int64 {
	return a.TotalEarningsCents - a.PaidEarningsCents
}
