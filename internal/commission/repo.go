package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
)

// Repository exposes persistence for the commission ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAffiliateByReferralCode(ctx context.Context, code string) (*models.AffiliateProfile, error)
	FindAffiliateByID(ctx context.Context, id uuid.UUID) (*models.AffiliateProfile, error)
	CreateCommissionLog(ctx context.Context, log *models.CommissionLog) error
	IncrementEarnings(ctx context.Context, affiliateID uuid.UUID, amountCents int64) error
	ListCommissionsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.CommissionLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commission repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAffiliateByReferralCode(ctx context.Context, code string) (*models.AffiliateProfile, error) {
	var profile models.AffiliateProfile
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindAffiliateByID(ctx context.Context, id uuid.UUID) (*models.AffiliateProfile, error) {
	var profile models.AffiliateProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) CreateCommissionLog(ctx context.Context, log *models.CommissionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) IncrementEarnings(ctx context.Context, affiliateID uuid.UUID, amountCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.AffiliateProfile{}).
		Where("id = ?", affiliateID).
		Update("total_earnings_cents", gorm.Expr("total_earnings_cents + ?", amountCents)).Error
}

func (r *repository) ListCommissionsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.CommissionLog, error) {
	var logs []models.CommissionLog
	if err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
