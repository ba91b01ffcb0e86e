package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// Coupon is a discount code redeemed at checkout. DiscountValue is percent
// points for percentage coupons and cents for fixed coupons.
type Coupon struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string                   `gorm:"column:code;not null;unique"`
	DiscountType  enums.CouponDiscountType `gorm:"column:discount_type;type:coupon_discount_type;not null"`
	DiscountValue int64                    `gorm:"column:discount_value;not null"`
	MaxUses       *int                     `gorm:"column:max_uses"`
	UsedCount     int                      `gorm:"column:used_count;not null;default:0"`
	ExpiresAt     *time.Time               `gorm:"column:expires_at"`
	IsActive      bool                     `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
