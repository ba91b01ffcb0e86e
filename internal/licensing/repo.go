package licensing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
)

// Repository exposes persistence for licenses and device activations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLicense(ctx context.Context, license *models.License) error
	FindByKey(ctx context.Context, key string) (*models.License, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.License, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindDeviceActivation(ctx context.Context, licenseID uuid.UUID, deviceID string) (*models.DeviceActivation, error)
	InsertDeviceActivation(ctx context.Context, activation *models.DeviceActivation) (bool, error)
	IncrementActivations(ctx context.Context, licenseID uuid.UUID) (bool, error)
	UpdateStatusByOrderID(ctx context.Context, orderID string, status enums.LicenseStatus) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a licensing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLicense(ctx context.Context, license *models.License) error {
	return r.db.WithContext(ctx).Create(license).Error
}

func (r *repository) FindByKey(ctx context.Context, key string) (*models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&license).Error; err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.License, error) {
	var license models.License
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&license).Error; err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindDeviceActivation(ctx context.Context, licenseID uuid.UUID, deviceID string) (*models.DeviceActivation, error) {
	var activation models.DeviceActivation
	err := r.db.WithContext(ctx).
		Where("license_id = ? AND device_id = ?", licenseID, deviceID).
		First(&activation).Error
	if err != nil {
		return nil, err
	}
	return &activation, nil
}

// InsertDeviceActivation records a device against a license. The composite
// unique index turns duplicate inserts into a no-op; the bool reports whether
// a new row landed.
func (r *repository) InsertDeviceActivation(ctx context.Context, activation *models.DeviceActivation) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "license_id"}, {Name: "device_id"}},
			DoNothing: true,
		}).
		Create(activation)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementActivations bumps the counter only while it is below the ceiling.
// A false return means the license is fully activated.
func (r *repository) IncrementActivations(ctx context.Context, licenseID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ? AND activations < max_activations", licenseID).
		Update("activations", gorm.Expr("activations + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateStatusByOrderID(ctx context.Context, orderID string, status enums.LicenseStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

func (r *repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", enums.LicenseStatusActive, now).
		Update("status", enums.LicenseStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
