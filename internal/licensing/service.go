package licensing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db"
	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ActivateInput identifies the license and the device asking to use it.
// ProductSlug is optional; when present the license must belong to that
// product.
type ActivateInput struct {
	Key         string
	ProductSlug string
	DeviceID    string
}

// ProductInfo identifies the product a license belongs to.
type ProductInfo struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// ActivationResult reports the license state after an activation attempt.
// Product is carried separately so callers can present it alongside the
// license payload.
type ActivationResult struct {
	LicenseID      uuid.UUID          `json:"license_id"`
	ProductID      uuid.UUID          `json:"product_id"`
	Status         enums.LicenseStatus `json:"status"`
	Activations    int                `json:"activations"`
	MaxActivations int                `json:"max_activations"`
	AlreadyActive  bool               `json:"already_active"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
	Product        ProductInfo        `json:"-"`
}

// Service owns license issuance, device activation, and expiry.
type Service interface {
	IssueForOrder(ctx context.Context, tx *gorm.DB, orderID string, productID uuid.UUID) (*models.License, error)
	RevokeForOrder(ctx context.Context, tx *gorm.DB, orderID string) error
	Activate(ctx context.Context, input ActivateInput) (*ActivationResult, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the licensing service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("licensing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// IssueForOrder mints a license for a paid digital order inside the caller's
// transaction. Re-issuing for the same order returns the existing license.
func (s *service) IssueForOrder(ctx context.Context, tx *gorm.DB, orderID string, productID uuid.UUID) (*models.License, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load license by order")
	}

	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	key, err := MintKey()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint license key")
	}

	license := &models.License{
		Key:            key,
		ProductID:      product.ID,
		OrderID:        &orderID,
		Status:         enums.LicenseStatusActive,
		MaxActivations: product.DefaultMaxActivations,
	}
	if product.LicenseValidityDays != nil {
		expires := time.Now().UTC().AddDate(0, 0, *product.LicenseValidityDays)
		license.ExpiresAt = &expires
	}

	if err := repo.CreateLicense(ctx, license); err != nil {
		if db.IsUniqueViolation(err, "order_id") {
			return repo.FindByOrderID(ctx, orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create license")
	}
	return license, nil
}

// RevokeForOrder disables the license issued for a refunded order.
func (s *service) RevokeForOrder(ctx context.Context, tx *gorm.DB, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.UpdateStatusByOrderID(ctx, orderID, enums.LicenseStatusRevoked); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke license")
	}
	return nil
}

// Activate binds a device to a license while honoring the activation ceiling.
// A device that is already bound re-verifies without consuming a slot. The
// counter and the device table only ever move together inside one
// transaction, so the ceiling holds under concurrent attempts.
func (s *service) Activate(ctx context.Context, input ActivateInput) (*ActivationResult, error) {
	key := NormalizeKey(input.Key)
	deviceID := strings.TrimSpace(input.DeviceID)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key required")
	}
	if deviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id required")
	}

	var result *ActivationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		license, err := repo.FindByKey(ctx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load license")
		}

		product, err := repo.FindProduct(ctx, license.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if slug := strings.ToLower(strings.TrimSpace(input.ProductSlug)); slug != "" && product.Slug != slug {
			return pkgerrors.New(pkgerrors.CodeNotFound, "license does not match product")
		}

		switch license.Status {
		case enums.LicenseStatusRevoked:
			return pkgerrors.New(pkgerrors.CodeForbidden, "license revoked")
		case enums.LicenseStatusExpired:
			return pkgerrors.New(pkgerrors.CodeForbidden, "license expired")
		}
		if license.ExpiresAt != nil && license.ExpiresAt.Before(time.Now().UTC()) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "license expired")
		}

		if _, err := repo.FindDeviceActivation(ctx, license.ID, deviceID); err == nil {
			result = buildResult(license, product, true)
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device activation")
		}

		inserted, err := repo.InsertDeviceActivation(ctx, &models.DeviceActivation{
			LicenseID: license.ID,
			DeviceID:  deviceID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record device activation")
		}
		if !inserted {
			result = buildResult(license, product, true)
			return nil
		}

		bumped, err := repo.IncrementActivations(ctx, license.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment activations")
		}
		if !bumped {
			return pkgerrors.New(pkgerrors.CodeConflict, "activation limit reached")
		}

		// Re-read so the reported counter is the stored value, not the
		// pre-increment snapshot.
		updated, err := repo.FindByKey(ctx, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload license")
		}
		result = buildResult(updated, product, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireOverdue flips active licenses whose expiry has passed.
func (s *service) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire licenses")
	}
	if expired > 0 {
		s.logg.Info(ctx, fmt.Sprintf("expired %d overdue licenses", expired))
	}
	return expired, nil
}

func buildResult(license *models.License, product *models.Product, alreadyActive bool) *ActivationResult {
	return &ActivationResult{
		LicenseID:      license.ID,
		ProductID:      license.ProductID,
		Status:         license.Status,
		Activations:    license.Activations,
		MaxActivations: license.MaxActivations,
		AlreadyActive:  alreadyActive,
		ExpiresAt:      license.ExpiresAt,
		Product: ProductInfo{
			ID:   product.ID,
			Slug: product.Slug,
			Name: product.Name,
		},
	}
}
