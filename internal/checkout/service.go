package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/internal/coupons"
	"github.com/worklane/worklane-backend/pkg/config"
	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponEngine interface {
	Validate(ctx context.Context, code string, amountCents int64) (*coupons.Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string) error
}

// ProjectOrderInput starts a payment attempt against a project estimate.
type ProjectOrderInput struct {
	ProjectID    uuid.UUID
	Provider     enums.PaymentProvider
	CouponCode   string
	ReferralCode string
}

// DigitalOrderInput starts a payment attempt for a licensable product.
type DigitalOrderInput struct {
	ProductID    uuid.UUID
	ProductSlug  string
	Provider     enums.PaymentProvider
	CouponCode   string
	ReferralCode string
}

// ProjectOrderResult is the created order plus the coupon effect, if any.
type ProjectOrderResult struct {
	Order  *models.Order  `json:"order"`
	Coupon *coupons.Quote `json:"coupon,omitempty"`
}

// DigitalOrderResult mirrors ProjectOrderResult for digital orders.
type DigitalOrderResult struct {
	Order  *models.DigitalOrder `json:"order"`
	Coupon *coupons.Quote       `json:"coupon,omitempty"`
}

// Service creates the orders the payment gateways later settle.
type Service interface {
	CreateProjectOrder(ctx context.Context, input ProjectOrderInput) (*ProjectOrderResult, error)
	CreateDigitalOrder(ctx context.Context, input DigitalOrderInput) (*DigitalOrderResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	coupons couponEngine
	cfg     config.CheckoutConfig
}

// NewService builds the checkout service with the required dependencies.
func NewService(repo Repository, tx txRunner, couponEngine couponEngine, cfg config.CheckoutConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if couponEngine == nil {
		return nil, fmt.Errorf("coupon engine required")
	}
	return &service{repo: repo, tx: tx, coupons: couponEngine, cfg: cfg}, nil
}

// CreateProjectOrder opens a payment attempt for a project that is still
// awaiting payment. The coupon is redeemed in the same transaction as the
// order insert so a stale coupon aborts the checkout.
func (s *service) CreateProjectOrder(ctx context.Context, input ProjectOrderInput) (*ProjectOrderResult, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}

	project, err := s.repo.FindProject(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	if project.PaymentStatus == enums.ProjectPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project is already paid")
	}
	if project.Status == enums.ProjectStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project is cancelled")
	}
	if project.EstimateID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project has no estimate")
	}

	estimate, err := s.repo.FindEstimate(ctx, *project.EstimateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load estimate")
	}
	if estimate.Status == enums.EstimateStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "estimate is cancelled")
	}

	amount := estimate.TotalCostCents
	quote, err := s.quoteCoupon(ctx, input.CouponCode, amount)
	if err != nil {
		return nil, err
	}
	if quote != nil {
		amount = quote.FinalCents
	}

	orderID, err := NewOrderID(s.cfg.OrderIDPrefix, time.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order id")
	}

	order := &models.Order{
		ID:              orderID,
		ProjectID:       project.ID,
		AmountCents:     amount,
		Currency:        s.currency(estimate.Currency),
		Status:          enums.OrderStatusPending,
		Provider:        input.Provider,
		ReferralCode:    optional(input.ReferralCode),
		PaymentMetadata: couponMetadata(quote, estimate.TotalCostCents),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if quote != nil {
			if err := s.coupons.Redeem(ctx, tx, quote.Code); err != nil {
				return err
			}
		}
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ProjectOrderResult{Order: order, Coupon: quote}, nil
}

// CreateDigitalOrder opens a payment attempt for a product, addressed by ID
// or slug.
func (s *service) CreateDigitalOrder(ctx context.Context, input DigitalOrderInput) (*DigitalOrderResult, error) {
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}

	product, err := s.resolveProduct(ctx, input)
	if err != nil {
		return nil, err
	}

	amount := product.PriceCents
	quote, err := s.quoteCoupon(ctx, input.CouponCode, amount)
	if err != nil {
		return nil, err
	}
	if quote != nil {
		amount = quote.FinalCents
	}

	orderID, err := NewOrderID(s.cfg.DigitalOrderIDPrefix, time.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order id")
	}

	order := &models.DigitalOrder{
		ID:              orderID,
		ProductID:       product.ID,
		AmountCents:     amount,
		Currency:        s.currency(product.Currency),
		Status:          enums.OrderStatusPending,
		Provider:        input.Provider,
		ReferralCode:    optional(input.ReferralCode),
		PaymentMetadata: couponMetadata(quote, product.PriceCents),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if quote != nil {
			if err := s.coupons.Redeem(ctx, tx, quote.Code); err != nil {
				return err
			}
		}
		if err := s.repo.WithTx(tx).CreateDigitalOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create digital order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DigitalOrderResult{Order: order, Coupon: quote}, nil
}

func (s *service) resolveProduct(ctx context.Context, input DigitalOrderInput) (*models.Product, error) {
	var (
		product *models.Product
		err     error
	)
	switch {
	case input.ProductID != uuid.Nil:
		product, err = s.repo.FindProduct(ctx, input.ProductID)
	case strings.TrimSpace(input.ProductSlug) != "":
		product, err = s.repo.FindProductBySlug(ctx, strings.TrimSpace(input.ProductSlug))
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id or slug required")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) quoteCoupon(ctx context.Context, code string, amountCents int64) (*coupons.Quote, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	return s.coupons.Validate(ctx, code, amountCents)
}

func (s *service) currency(fromSource string) string {
	if fromSource != "" {
		return fromSource
	}
	return s.cfg.DefaultCurrency
}

// couponMetadata stamps the applied coupon onto the order so settled orders
// stay auditable against coupon redemptions.
func couponMetadata(quote *coupons.Quote, originalCents int64) types.JSONMap {
	if quote == nil {
		return nil
	}
	return types.JSONMap{
		"coupon_code":           quote.Code,
		"coupon_discount_cents": quote.DiscountCents,
		"original_amount_cents": originalCents,
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
