package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/internal/coupons"
	"github.com/worklane/worklane-backend/pkg/config"
	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'payment_pending',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  estimate_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS estimates (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  total_cost_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'IDR',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  default_max_activations INTEGER NOT NULL DEFAULT 1,
  license_validity_days INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  payment_type TEXT,
  transaction_id TEXT,
  referral_code TEXT,
  payment_metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS digital_orders (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  payment_type TEXT,
  transaction_id TEXT,
  referral_code TEXT,
  payment_metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func checkoutTestConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		OrderIDPrefix:        "ORD",
		DigitalOrderIDPrefix: "DIG",
		DefaultCurrency:      "IDR",
	}
}

func newCheckoutService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, couponSvc, checkoutTestConfig())
	require.NoError(t, err)
	return svc
}

func seedPayableProject(t *testing.T, db *gorm.DB, totalCents int64) *models.Project {
	t.Helper()
	estimate := &models.Estimate{
		ID:             uuid.New(),
		ClientID:       uuid.New(),
		Status:         enums.EstimateStatusPendingPayment,
		TotalCostCents: totalCents,
		Currency:       "IDR",
	}
	require.NoError(t, db.Create(estimate).Error)

	project := &models.Project{
		ID:            uuid.New(),
		ClientID:      estimate.ClientID,
		Name:          "Company profile site",
		Status:        enums.ProjectStatusPaymentPending,
		PaymentStatus: enums.ProjectPaymentStatusUnpaid,
		EstimateID:    &estimate.ID,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func TestNewOrderIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	id, err := NewOrderID("ORD", now)
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-20260831-[A-Z2-7]{6}$`, id)

	other, err := NewOrderID("ORD", now)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestCreateProjectOrder(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	project := seedPayableProject(t, db, 500_000_00)

	result, err := svc.CreateProjectOrder(context.Background(), ProjectOrderInput{
		ProjectID:    project.ID,
		Provider:     enums.ProviderMidtrans,
		ReferralCode: "PARTNER10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_00), result.Order.AmountCents)
	assert.Equal(t, enums.OrderStatusPending, result.Order.Status)
	assert.Equal(t, "IDR", result.Order.Currency)
	require.NotNil(t, result.Order.ReferralCode)
	assert.Equal(t, "PARTNER10", *result.Order.ReferralCode)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", result.Order.ID).Error)
	assert.Equal(t, project.ID, stored.ProjectID)
}

func TestCreateProjectOrderWithCoupon(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	project := seedPayableProject(t, db, 500_000_00)

	maxUses := 1
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "LAUNCH20",
		DiscountType:  enums.CouponDiscountPercentage,
		DiscountValue: 20,
		MaxUses:       &maxUses,
		IsActive:      true,
	}
	require.NoError(t, db.Create(coupon).Error)

	result, err := svc.CreateProjectOrder(context.Background(), ProjectOrderInput{
		ProjectID:  project.ID,
		Provider:   enums.ProviderMidtrans,
		CouponCode: "launch20",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400_000_00), result.Order.AmountCents)
	require.NotNil(t, result.Coupon)
	assert.Equal(t, int64(100_000_00), result.Coupon.DiscountCents)

	var got models.Coupon
	require.NoError(t, db.First(&got, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, got.UsedCount)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", result.Order.ID).Error)
	assert.Equal(t, "LAUNCH20", stored.PaymentMetadata.String("coupon_code"))
	assert.EqualValues(t, 100_000_00, stored.PaymentMetadata["coupon_discount_cents"])
	assert.EqualValues(t, 500_000_00, stored.PaymentMetadata["original_amount_cents"])

	// The coupon is exhausted now, so the next checkout must fail whole.
	second := seedPayableProject(t, db, 100_000_00)
	_, err = svc.CreateProjectOrder(context.Background(), ProjectOrderInput{
		ProjectID:  second.ID,
		Provider:   enums.ProviderMidtrans,
		CouponCode: "LAUNCH20",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Where("project_id = ?", second.ID).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreateProjectOrderPaidProjectRejected(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	project := seedPayableProject(t, db, 100_000_00)
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", project.ID).
		Update("payment_status", enums.ProjectPaymentStatusPaid).Error)

	_, err := svc.CreateProjectOrder(context.Background(), ProjectOrderInput{
		ProjectID: project.ID,
		Provider:  enums.ProviderMidtrans,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCreateDigitalOrderBySlug(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	product := &models.Product{
		ID:                    uuid.New(),
		Slug:                  "icon-pack",
		Name:                  "Icon Pack",
		PriceCents:            49_000_00,
		Currency:              "IDR",
		DefaultMaxActivations: 2,
	}
	require.NoError(t, db.Create(product).Error)

	result, err := svc.CreateDigitalOrder(context.Background(), DigitalOrderInput{
		ProductSlug: "icon-pack",
		Provider:    enums.ProviderStripe,
	})
	require.NoError(t, err)
	assert.Equal(t, product.ID, result.Order.ProductID)
	assert.Equal(t, int64(49_000_00), result.Order.AmountCents)
	assert.Regexp(t, `^DIG-`, result.Order.ID)
}

func TestCreateDigitalOrderWithCouponStampsMetadata(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	product := &models.Product{
		ID:                    uuid.New(),
		Slug:                  "font-bundle",
		Name:                  "Font Bundle",
		PriceCents:            80_000_00,
		Currency:              "IDR",
		DefaultMaxActivations: 1,
	}
	require.NoError(t, db.Create(product).Error)

	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "FLAT10K",
		DiscountType:  enums.CouponDiscountFixed,
		DiscountValue: 10_000_00,
		IsActive:      true,
	}
	require.NoError(t, db.Create(coupon).Error)

	result, err := svc.CreateDigitalOrder(context.Background(), DigitalOrderInput{
		ProductSlug: "font-bundle",
		Provider:    enums.ProviderStripe,
		CouponCode:  "flat10k",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70_000_00), result.Order.AmountCents)

	var stored models.DigitalOrder
	require.NoError(t, db.First(&stored, "id = ?", result.Order.ID).Error)
	assert.Equal(t, "FLAT10K", stored.PaymentMetadata.String("coupon_code"))
	assert.EqualValues(t, 10_000_00, stored.PaymentMetadata["coupon_discount_cents"])
	assert.EqualValues(t, 80_000_00, stored.PaymentMetadata["original_amount_cents"])
}

func TestCreateDigitalOrderUnknownProduct(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	_, err := svc.CreateDigitalOrder(context.Background(), DigitalOrderInput{
		ProductID: uuid.New(),
		Provider:  enums.ProviderStripe,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
