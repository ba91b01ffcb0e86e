package coupons

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value INTEGER NOT NULL,
  max_uses INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  expires_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          NormalizeCode("SAVE-" + uuid.NewString()[:8]),
		DiscountType:  enums.CouponDiscountPercentage,
		DiscountValue: 10,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func newCouponsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestValidatePercentage(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponsService(t, db)
	coupon := seedCoupon(t, db, nil)

	quote, err := svc.Validate(context.Background(), coupon.Code, 200_000_00)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_00), quote.DiscountCents)
	assert.Equal(t, int64(180_000_00), quote.FinalCents)
}

func TestValidateFixedCapsAtAmount(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponsService(t, db)
	coupon := seedCoupon(t, db, func(c *models.Coupon) {
		c.DiscountType = enums.CouponDiscountFixed
		c.DiscountValue = 50_000_00
	})

	quote, err := svc.Validate(context.Background(), coupon.Code, 30_000_00)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000_00), quote.DiscountCents)
	assert.Zero(t, quote.FinalCents)
}

func TestValidateIsCaseInsensitive(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponsService(t, db)
	coupon := seedCoupon(t, db, nil)

	quote, err := svc.Validate(context.Background(), "  "+coupon.Code+" ", 100_00)
	require.NoError(t, err)
	assert.Equal(t, coupon.Code, quote.Code)
}

func TestValidateRejectionOrder(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponsService(t, db)

	_, err := svc.Validate(context.Background(), "NO-SUCH-CODE", 100_00)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	inactive := seedCoupon(t, db, func(c *models.Coupon) { c.IsActive = false })
	_, err = svc.Validate(context.Background(), inactive.Code, 100_00)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Contains(t, err.Error(), "not active")

	past := time.Now().UTC().Add(-time.Hour)
	expired := seedCoupon(t, db, func(c *models.Coupon) { c.ExpiresAt = &past })
	_, err = svc.Validate(context.Background(), expired.Code, 100_00)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	maxUses := 5
	exhausted := seedCoupon(t, db, func(c *models.Coupon) {
		c.MaxUses = &maxUses
		c.UsedCount = 5
	})
	_, err = svc.Validate(context.Background(), exhausted.Code, 100_00)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestRedeemConsumesUse(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponsService(t, db)
	maxUses := 2
	coupon := seedCoupon(t, db, func(c *models.Coupon) { c.MaxUses = &maxUses })

	require.NoError(t, svc.Redeem(context.Background(), db, coupon.Code))
	require.NoError(t, svc.Redeem(context.Background(), db, coupon.Code))

	err := svc.Redeem(context.Background(), db, coupon.Code)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	var got models.Coupon
	require.NoError(t, db.First(&got, "id = ?", coupon.ID).Error)
	assert.Equal(t, 2, got.UsedCount)
}

func TestRedeemConcurrentAttemptsRespectLimit(t *testing.T) {
	db := setupCouponsTestDB(t)

	// sqlite serializes writers; a single pooled connection keeps the
	// concurrent updates from tripping its table locks.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := newCouponsService(t, db)
	maxUses := 1
	coupon := seedCoupon(t, db, func(c *models.Coupon) { c.MaxUses = &maxUses })

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Redeem(context.Background(), db, coupon.Code)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	}
	assert.Equal(t, 1, successes)

	var got models.Coupon
	require.NoError(t, db.First(&got, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, got.UsedCount)
}

func TestRedeemUnlimitedUses(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponsService(t, db)
	coupon := seedCoupon(t, db, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Redeem(context.Background(), db, coupon.Code))
	}

	var got models.Coupon
	require.NoError(t, db.First(&got, "id = ?", coupon.ID).Error)
	assert.Equal(t, 5, got.UsedCount)
}
