package affiliates

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
)

// Repository exposes persistence for affiliate profiles and payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfileByID(ctx context.Context, id uuid.UUID) (*models.AffiliateProfile, error)
	FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.AffiliateProfile, error)
	CreateProfile(ctx context.Context, profile *models.AffiliateProfile) error
	CountPendingPayouts(ctx context.Context, affiliateID uuid.UUID) (int64, error)
	CreatePayout(ctx context.Context, payout *models.PayoutRequest) error
	FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	DecidePayout(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error)
	AddPaidEarnings(ctx context.Context, affiliateID uuid.UUID, amountCents int64) error
	ListPayoutsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.PayoutRequest, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an affiliates repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfileByID(ctx context.Context, id uuid.UUID) (*models.AffiliateProfile, error) {
	var profile models.AffiliateProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.AffiliateProfile, error) {
	var profile models.AffiliateProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) CreateProfile(ctx context.Context, profile *models.AffiliateProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) CountPendingPayouts(ctx context.Context, affiliateID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, enums.PayoutStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.PayoutRequest) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// DecidePayout moves a payout between statuses only if it is still in the
// expected one, so two admins cannot decide the same request twice.
func (r *repository) DecidePayout(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"decided_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AddPaidEarnings(ctx context.Context, affiliateID uuid.UUID, amountCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.AffiliateProfile{}).
		Where("id = ?", affiliateID).
		Update("paid_earnings_cents", gorm.Expr("paid_earnings_cents + ?", amountCents)).Error
}

func (r *repository) ListPayoutsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	if err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}
