package affiliates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type payoutNotifier interface {
	PayoutDecided(ctx context.Context, payoutID uuid.UUID, status enums.PayoutStatus)
}

// RequestPayoutInput captures a withdrawal request with its bank snapshot.
type RequestPayoutInput struct {
	UserID            uuid.UUID
	AmountCents       int64
	BankName          string
	BankAccountName   string
	BankAccountNumber string
}

// PayoutDecision is the admin resolution of a pending payout.
type PayoutDecision string

const (
	PayoutDecisionApprove PayoutDecision = "approve"
	PayoutDecisionReject  PayoutDecision = "reject"
)

// Service owns affiliate payout requests and their resolution.
type Service interface {
	RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.PayoutRequest, error)
	DecidePayout(ctx context.Context, payoutID uuid.UUID, decision PayoutDecision) (*models.PayoutRequest, error)
	ListPayouts(ctx context.Context, userID uuid.UUID) ([]models.PayoutRequest, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier payoutNotifier
	logg     *logger.Logger
}

// NewService builds the affiliates service. The notifier may be nil.
func NewService(repo Repository, tx txRunner, notifier payoutNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("affiliates repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, notifier: notifier, logg: logg}, nil
}

// RequestPayout opens a withdrawal against the affiliate's available balance.
// One pending request per affiliate; the balance check and the insert share a
// transaction so parallel requests cannot both pass.
func (s *service) RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.PayoutRequest, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.BankName) == "" ||
		strings.TrimSpace(input.BankAccountName) == "" ||
		strings.TrimSpace(input.BankAccountNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank details required")
	}

	var payout *models.PayoutRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		profile, err := repo.FindProfileByUserID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "affiliate profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliate profile")
		}
		if profile.Status != enums.AffiliateStatusActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "affiliate is not active")
		}
		if input.AmountCents > profile.AvailableCents() {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds available balance")
		}

		pending, err := repo.CountPendingPayouts(ctx, profile.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending payouts")
		}
		if pending > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "a payout request is already pending")
		}

		payout = &models.PayoutRequest{
			AffiliateID:       profile.ID,
			AmountCents:       input.AmountCents,
			Status:            enums.PayoutStatusPending,
			BankName:          strings.TrimSpace(input.BankName),
			BankAccountName:   strings.TrimSpace(input.BankAccountName),
			BankAccountNumber: strings.TrimSpace(input.BankAccountNumber),
		}
		if err := repo.CreatePayout(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

// DecidePayout resolves a pending request. Approval moves the amount to paid
// earnings; either way the request can only be decided once.
func (s *service) DecidePayout(ctx context.Context, payoutID uuid.UUID, decision PayoutDecision) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	target, err := mapDecision(decision)
	if err != nil {
		return nil, err
	}

	var payout *models.PayoutRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payout, err = repo.FindPayoutByID(ctx, payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout request")
		}

		decided, err := repo.DecidePayout(ctx, payout.ID, enums.PayoutStatusPending, target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide payout")
		}
		if !decided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout request already decided")
		}

		if target == enums.PayoutStatusPaid {
			if err := repo.AddPaidEarnings(ctx, payout.AffiliateID, payout.AmountCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update paid earnings")
			}
		}
		payout.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.PayoutDecided(ctx, payout.ID, payout.Status)
	}
	return payout, nil
}

func (s *service) ListPayouts(ctx context.Context, userID uuid.UUID) ([]models.PayoutRequest, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliate profile")
	}
	payouts, err := s.repo.ListPayoutsByAffiliate(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return payouts, nil
}

func mapDecision(decision PayoutDecision) (enums.PayoutStatus, error) {
	switch decision {
	case PayoutDecisionApprove:
		return enums.PayoutStatusPaid, nil
	case PayoutDecisionReject:
		return enums.PayoutStatusRejected, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or reject")
	}
}
