package commission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
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

// Service credits affiliate commissions for settled orders. Crediting is
// exactly-once per order: the ledger's unique order constraint absorbs
// webhook re-deliveries.
type Service interface {
	CreditForOrder(ctx context.Context, orderID, referralCode string, amountCents int64) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the commission service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) CreditForOrder(ctx context.Context, orderID, referralCode string, amountCents int64) error {
	if strings.TrimSpace(orderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(referralCode) == "" {
		return nil
	}
	if amountCents <= 0 {
		return nil
	}

	ctx = s.logg.WithOrderID(ctx, orderID)

	affiliate, err := s.repo.FindAffiliateByReferralCode(ctx, referralCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "referral code has no affiliate, commission skipped")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliate")
	}
	if affiliate.Status != enums.AffiliateStatusActive {
		s.logg.Warn(ctx, "affiliate not active, commission skipped")
		return nil
	}

	commissionCents := CommissionCents(amountCents, affiliate.CommissionRate)
	if commissionCents <= 0 {
		return nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry := &models.CommissionLog{
			AffiliateID: affiliate.ID,
			OrderID:     orderID,
			AmountCents: commissionCents,
			Status:      enums.CommissionStatusCredited,
		}
		if err := repo.CreateCommissionLog(ctx, entry); err != nil {
			return err
		}
		return repo.IncrementEarnings(ctx, affiliate.ID, commissionCents)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "order_id") {
			s.logg.Info(ctx, "commission already credited for order")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit commission")
	}
	return nil
}

// CommissionCents computes the commission for a gross amount at a percentage
// rate, truncated to whole cents. The ledger never credits a fraction of a
// cent upward.
func CommissionCents(amountCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}
