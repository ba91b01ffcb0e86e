package licensing

import (
	"context"
	"fmt"
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
	"github.com/worklane/worklane-backend/pkg/logger"
)

func setupLicensingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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
CREATE TABLE IF NOT EXISTS licenses (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL UNIQUE,
  product_id TEXT NOT NULL,
  order_id TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  max_activations INTEGER NOT NULL,
  activations INTEGER NOT NULL DEFAULT 0,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS idx_licenses_order_id ON licenses (order_id);`, `
CREATE TABLE IF NOT EXISTS device_activations (
  id TEXT PRIMARY KEY,
  license_id TEXT NOT NULL,
  device_id TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS idx_device_activations_license_device ON device_activations (license_id, device_id);`}
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

func newLicensingService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, maxActivations int, validityDays *int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:                    uuid.New(),
		Slug:                  "tool-" + uuid.NewString()[:8],
		Name:                  "Design Tool",
		PriceCents:            49_000_00,
		DefaultMaxActivations: maxActivations,
		LicenseValidityDays:   validityDays,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedLicense(t *testing.T, db *gorm.DB, productID uuid.UUID, maxActivations int) *models.License {
	t.Helper()
	key, err := MintKey()
	require.NoError(t, err)
	license := &models.License{
		ID:             uuid.New(),
		Key:            key,
		ProductID:      productID,
		Status:         enums.LicenseStatusActive,
		MaxActivations: maxActivations,
	}
	require.NoError(t, db.Create(license).Error)
	return license
}

func TestMintKeyFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key, err := MintKey()
		require.NoError(t, err)
		assert.Regexp(t, `^WL-[A-Z2-7]{5}-[A-Z2-7]{5}-[A-Z2-7]{5}-[A-Z2-7]{5}$`, key)
		assert.False(t, seen[key], "duplicate key minted")
		seen[key] = true
	}
}

func TestIssueForOrderIsIdempotent(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	validity := 365
	product := seedProduct(t, db, 3, &validity)
	orderID := "DIG-" + uuid.NewString()

	var first, second *models.License
	require.NoError(t, testTxRunner{db: db}.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		first, err = svc.IssueForOrder(context.Background(), tx, orderID, product.ID)
		return err
	}))
	require.NoError(t, testTxRunner{db: db}.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		second, err = svc.IssueForOrder(context.Background(), tx, orderID, product.ID)
		return err
	}))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, 3, first.MaxActivations)
	require.NotNil(t, first.ExpiresAt)

	var count int64
	require.NoError(t, db.Model(&models.License{}).Where("order_id = ?", orderID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestActivateConsumesSlots(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 2, nil)
	license := seedLicense(t, db, product.ID, 2)

	first, err := svc.Activate(context.Background(), ActivateInput{Key: license.Key, DeviceID: "device-1"})
	require.NoError(t, err)
	assert.False(t, first.AlreadyActive)
	assert.Equal(t, 1, first.Activations)

	second, err := svc.Activate(context.Background(), ActivateInput{Key: license.Key, DeviceID: "device-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Activations)

	_, err = svc.Activate(context.Background(), ActivateInput{Key: license.Key, DeviceID: "device-3"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.DeviceActivation{}).Where("license_id = ?", license.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count, "rejected activation must not leave a device row")
}

func TestActivateSameDeviceIsIdempotent(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 1, nil)
	license := seedLicense(t, db, product.ID, 1)

	first, err := svc.Activate(context.Background(), ActivateInput{Key: license.Key, DeviceID: "device-1"})
	require.NoError(t, err)
	assert.False(t, first.AlreadyActive)

	again, err := svc.Activate(context.Background(), ActivateInput{Key: license.Key, DeviceID: "device-1"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyActive)
	assert.Equal(t, 1, again.Activations)
}

func TestActivateRejectsRevokedAndExpired(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 1, nil)

	revoked := seedLicense(t, db, product.ID, 1)
	require.NoError(t, db.Model(&models.License{}).Where("id = ?", revoked.ID).
		Update("status", enums.LicenseStatusRevoked).Error)

	_, err := svc.Activate(context.Background(), ActivateInput{Key: revoked.Key, DeviceID: "device-1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	expired := seedLicense(t, db, product.ID, 1)
	past := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.License{}).Where("id = ?", expired.ID).
		Update("expires_at", past).Error)

	_, err = svc.Activate(context.Background(), ActivateInput{Key: expired.Key, DeviceID: "device-1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestActivateUnknownKey(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)

	_, err := svc.Activate(context.Background(), ActivateInput{Key: "WL-AAAAA-AAAAA-AAAAA-AAAAA", DeviceID: "device-1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRevokeForOrder(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 1, nil)
	orderID := "DIG-" + uuid.NewString()

	var license *models.License
	require.NoError(t, testTxRunner{db: db}.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		license, err = svc.IssueForOrder(context.Background(), tx, orderID, product.ID)
		return err
	}))

	require.NoError(t, testTxRunner{db: db}.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.RevokeForOrder(context.Background(), tx, orderID)
	}))

	var got models.License
	require.NoError(t, db.First(&got, "id = ?", license.ID).Error)
	assert.Equal(t, enums.LicenseStatusRevoked, got.Status)
}

func TestExpireOverdue(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 1, nil)

	overdue := seedLicense(t, db, product.ID, 1)
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(&models.License{}).Where("id = ?", overdue.ID).
		Update("expires_at", past).Error)

	current := seedLicense(t, db, product.ID, 1)
	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, db.Model(&models.License{}).Where("id = ?", current.ID).
		Update("expires_at", future).Error)

	expired, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, expired, int64(1))

	var got models.License
	require.NoError(t, db.First(&got, "id = ?", overdue.ID).Error)
	assert.Equal(t, enums.LicenseStatusExpired, got.Status)

	require.NoError(t, db.First(&got, "id = ?", current.ID).Error)
	assert.Equal(t, enums.LicenseStatusActive, got.Status)
}

func TestActivateCeilingHoldsUnderConcurrentDevices(t *testing.T) {
	db := setupLicensingTestDB(t)

	// sqlite serializes writers; a single pooled connection keeps concurrent
	// transactions from tripping its table locks.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 3, nil)
	license := seedLicense(t, db, product.ID, 3)

	const attempts = 8
	results := make([]*ActivationResult, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Activate(context.Background(), ActivateInput{
				Key:      license.Key,
				DeviceID: fmt.Sprintf("device-%d", i),
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for i := 0; i < attempts; i++ {
		if errs[i] == nil {
			successes++
			assert.LessOrEqual(t, results[i].Activations, 3)
			continue
		}
		typed := pkgerrors.As(errs[i])
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	}
	assert.Equal(t, 3, successes)

	var got models.License
	require.NoError(t, db.First(&got, "id = ?", license.ID).Error)
	assert.Equal(t, 3, got.Activations)

	var devices int64
	require.NoError(t, db.Model(&models.DeviceActivation{}).Where("license_id = ?", license.ID).Count(&devices).Error)
	assert.Equal(t, int64(3), devices, "losers must not leave device rows")
}

func TestActivateReportsStoredCounter(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 5, nil)
	license := seedLicense(t, db, product.ID, 5)

	for i := 1; i <= 3; i++ {
		result, err := svc.Activate(context.Background(), ActivateInput{
			Key:      license.Key,
			DeviceID: fmt.Sprintf("device-%d", i),
		})
		require.NoError(t, err)

		var got models.License
		require.NoError(t, db.First(&got, "id = ?", license.ID).Error)
		assert.Equal(t, got.Activations, result.Activations)
		assert.Equal(t, i, result.Activations)
	}
}

func TestActivateRejectsProductMismatch(t *testing.T) {
	db := setupLicensingTestDB(t)
	svc := newLicensingService(t, db)
	product := seedProduct(t, db, 3, nil)
	other := seedProduct(t, db, 3, nil)
	license := seedLicense(t, db, product.ID, 3)

	_, err := svc.Activate(context.Background(), ActivateInput{
		Key:         license.Key,
		ProductSlug: other.Slug,
		DeviceID:    "device-1",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	result, err := svc.Activate(context.Background(), ActivateInput{
		Key:         license.Key,
		ProductSlug: product.Slug,
		DeviceID:    "device-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activations)
	assert.Equal(t, product.Slug, result.Product.Slug)
	assert.Equal(t, product.Name, result.Product.Name)
}
