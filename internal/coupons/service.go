package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

// Quote is the price effect of applying a coupon to an amount.
type Quote struct {
	Code          string                   `json:"code"`
	DiscountType  enums.CouponDiscountType `json:"discount_type"`
	DiscountValue int64                    `json:"discount_value"`
	DiscountCents int64                    `json:"discount_cents"`
	FinalCents    int64                    `json:"final_cents"`
}

// Service validates and redeems coupon codes.
type Service interface {
	Validate(ctx context.Context, code string, amountCents int64) (*Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string) error
}

type service struct {
	repo Repository
}

// NewService builds the coupons service with the required repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

// Validate checks a coupon in a fixed order so the caller gets the most
// specific rejection: unknown code, deactivated, expired, then exhausted.
func (s *service) Validate(ctx context.Context, code string, amountCents int64) (*Quote, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if amountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is not active")
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon expired")
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
	}

	discount := DiscountCents(coupon, amountCents)
	return &Quote{
		Code:          coupon.Code,
		DiscountType:  coupon.DiscountType,
		DiscountValue: coupon.DiscountValue,
		DiscountCents: discount,
		FinalCents:    amountCents - discount,
	}, nil
}

// Redeem burns one use inside the caller's transaction. The conditional
// update re-checks every usability rule, so a coupon that went stale between
// validation and checkout is rejected here.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string) error {
	code = NormalizeCode(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	consumed, err := s.repo.WithTx(tx).ConsumeUse(ctx, code, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !consumed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is no longer redeemable")
	}
	return nil
}

// DiscountCents computes the discount a coupon grants on an amount. The
// result never exceeds the amount itself.
func DiscountCents(coupon *models.Coupon, amountCents int64) int64 {
	var discount int64
	switch coupon.DiscountType {
	case enums.CouponDiscountPercentage:
		discount = amountCents * coupon.DiscountValue / 100
	case enums.CouponDiscountFixed:
		discount = coupon.DiscountValue
	}
	if discount > amountCents {
		discount = amountCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// NormalizeCode upper-cases and trims a user-supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
