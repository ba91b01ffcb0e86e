package gatewayconfig

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
)

// Repository manages persistence for gateway settings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByProvider(ctx context.Context, provider enums.PaymentProvider) ([]models.GatewaySetting, error)
	Upsert(ctx context.Context, provider enums.PaymentProvider, key, value string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gateway settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByProvider(ctx context.Context, provider enums.PaymentProvider) ([]models.GatewaySetting, error) {
	var settings []models.GatewaySetting
	if err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repository) Upsert(ctx context.Context, provider enums.PaymentProvider, key, value string) error {
	setting := models.GatewaySetting{
		Provider: provider,
		Key:      key,
		Value:    value,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider"}, {Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":   value,
				"version": gorm.Expr("gateway_settings.version + 1"),
			}),
		}).
		Create(&setting).Error
}
