package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/pkg/enums"
)

// CommissionLog is the append-only earnings record for settled orders. The
// unique index on order_id is the idempotency anchor: a settled order can be
// credited at most once no matter how often its webhook is re-delivered.
type CommissionLog struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AffiliateID uuid.UUID              `gorm:"column:affiliate_id;type:uuid;not null"`
	OrderID     string                 `gorm:"column:order_id;not null;uniqueIndex:idx_commission_logs_order_id"`
	AmountCents int64                  `gorm:"column:amount_cents;not null"`
	Status      enums.CommissionStatus `gorm:"column:status;type:commission_status;not null;default:'credited'"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
