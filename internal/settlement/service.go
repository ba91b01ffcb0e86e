package settlement

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
	"github.com/worklane/worklane-backend/pkg/types"
)

var errConcurrentTransition = errors.New("order moved by a concurrent writer")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type commissionCrediter interface {
	CreditForOrder(ctx context.Context, orderID, referralCode string, amountCents int64) error
}

type licenseIssuer interface {
	IssueForOrder(ctx context.Context, tx *gorm.DB, orderID string, productID uuid.UUID) (*models.License, error)
	RevokeForOrder(ctx context.Context, tx *gorm.DB, orderID string) error
}

type settlementNotifier interface {
	OrderSettled(ctx context.Context, orderID string, status enums.OrderStatus)
}

// OrderKind distinguishes project orders from digital product orders.
type OrderKind string

const (
	OrderKindProject OrderKind = "project"
	OrderKindDigital OrderKind = "digital"
)

// Input is one provider notification reduced to the fields the state machine
// acts on. TargetStatus has already been mapped from provider tokens.
type Input struct {
	OrderID       string
	Provider      enums.PaymentProvider
	TargetStatus  enums.OrderStatus
	PaymentType   string
	TransactionID string
	Metadata      types.JSONMap
}

// Outcome reports what a settlement attempt did. Applied is false for every
// benign no-op: unknown orders, re-deliveries, and terminal-state conflicts.
type Outcome struct {
	OrderID   string
	Kind      OrderKind
	Previous  enums.OrderStatus
	Current   enums.OrderStatus
	Applied   bool
	LicenseID *uuid.UUID
}

// Service is the idempotent settlement state machine.
type Service interface {
	Apply(ctx context.Context, input Input) (*Outcome, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	commission commissionCrediter
	licenses   licenseIssuer
	notifier   settlementNotifier
	logg       *logger.Logger
}

// NewService builds the settlement service with the required dependencies.
// The notifier may be nil; everything else is mandatory.
func NewService(repo Repository, tx txRunner, commission commissionCrediter, licenses licenseIssuer, notifier settlementNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if commission == nil {
		return nil, fmt.Errorf("commission crediter required")
	}
	if licenses == nil {
		return nil, fmt.Errorf("license issuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		commission: commission,
		licenses:   licenses,
		notifier:   notifier,
		logg:       logg,
	}, nil
}

func (s *service) Apply(ctx context.Context, input Input) (*Outcome, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.TargetStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID)
	ctx = s.logg.WithProvider(ctx, input.Provider.String())

	kind, order, digital, err := s.locate(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		// Providers re-deliver notifications for orders created against other
		// environments. Acknowledge without acting so they stop retrying.
		s.logg.Warn(ctx, "settlement for unknown order acknowledged")
		return &Outcome{OrderID: input.OrderID, Applied: false}, nil
	}

	provider := orderProvider(kind, order, digital)
	if provider != input.Provider {
		s.logg.Warn(ctx, "settlement provider does not match order provider")
		return &Outcome{OrderID: input.OrderID, Kind: kind, Applied: false}, nil
	}

	outcome := &Outcome{OrderID: input.OrderID, Kind: kind}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		switch kind {
		case OrderKindProject:
			return s.applyProject(ctx, repo, tx, input, outcome)
		default:
			return s.applyDigital(ctx, repo, tx, input, outcome)
		}
	})
	if errors.Is(err, errConcurrentTransition) {
		s.logg.Warn(ctx, "settlement lost race to a concurrent delivery")
		return &Outcome{OrderID: input.OrderID, Kind: kind, Applied: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if outcome.Applied && outcome.Current == enums.OrderStatusPaid {
		s.afterPaid(ctx, kind, order, digital, input)
	}
	return outcome, nil
}

func (s *service) locate(ctx context.Context, id string) (OrderKind, *models.Order, *models.DigitalOrder, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err == nil {
		return OrderKindProject, order, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	digital, err := s.repo.FindDigitalOrder(ctx, id)
	if err == nil {
		return OrderKindDigital, nil, digital, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load digital order")
	}
	return "", nil, nil, nil
}

func (s *service) applyProject(ctx context.Context, repo Repository, tx *gorm.DB, input Input, outcome *Outcome) error {
	order, err := repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	outcome.Previous = order.Status
	outcome.Current = order.Status

	proceed, err := s.gate(ctx, order.Status, input.TargetStatus)
	if err != nil || !proceed {
		return err
	}

	moved, err := repo.TransitionOrder(ctx, order.ID, order.Status, paymentUpdates(input))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
	}
	if !moved {
		return errConcurrentTransition
	}
	outcome.Applied = true
	outcome.Current = input.TargetStatus

	switch input.TargetStatus {
	case enums.OrderStatusPaid:
		return s.cascadePaid(ctx, repo, order)
	case enums.OrderStatusCancelled:
		return s.cascadeCancelled(ctx, repo, order)
	case enums.OrderStatusRefunded:
		if err := repo.MarkProjectUnpaid(ctx, order.ProjectID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project unpaid")
		}
		s.logg.Warn(ctx, "order refunded, project flagged for review")
		return nil
	default:
		return nil
	}
}

func (s *service) applyDigital(ctx context.Context, repo Repository, tx *gorm.DB, input Input, outcome *Outcome) error {
	order, err := repo.FindDigitalOrder(ctx, input.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload digital order")
	}
	outcome.Previous = order.Status
	outcome.Current = order.Status

	proceed, err := s.gate(ctx, order.Status, input.TargetStatus)
	if err != nil || !proceed {
		return err
	}

	moved, err := repo.TransitionDigitalOrder(ctx, order.ID, order.Status, paymentUpdates(input))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition digital order")
	}
	if !moved {
		return errConcurrentTransition
	}
	outcome.Applied = true
	outcome.Current = input.TargetStatus

	switch input.TargetStatus {
	case enums.OrderStatusPaid:
		license, err := s.licenses.IssueForOrder(ctx, tx, order.ID, order.ProductID)
		if err != nil {
			return err
		}
		if license != nil {
			outcome.LicenseID = &license.ID
		}
		return nil
	case enums.OrderStatusRefunded:
		return s.licenses.RevokeForOrder(ctx, tx, order.ID)
	default:
		return nil
	}
}

// gate enforces the terminal-state policy: same-status re-deliveries and
// conflicting terminal transitions are absorbed, paid may still move to
// refunded.
func (s *service) gate(ctx context.Context, current, target enums.OrderStatus) (bool, error) {
	if current == target {
		return false, nil
	}
	if !current.IsTerminal() {
		return true, nil
	}
	if current == enums.OrderStatusPaid && target == enums.OrderStatusRefunded {
		return true, nil
	}
	s.logg.Warn(ctx, fmt.Sprintf("settlement to %s ignored, order already %s", target, current))
	return false, nil
}

func (s *service) cascadePaid(ctx context.Context, repo Repository, order *models.Order) error {
	if err := repo.MarkProjectPaid(ctx, order.ProjectID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project paid")
	}
	project, err := repo.FindProject(ctx, order.ProjectID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	if project.EstimateID != nil {
		if err := repo.MarkEstimatePaid(ctx, *project.EstimateID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark estimate paid")
		}
	}
	if _, err := repo.CancelSiblingOrders(ctx, order.ProjectID, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel sibling orders")
	}
	return nil
}

func (s *service) cascadeCancelled(ctx context.Context, repo Repository, order *models.Order) error {
	if err := repo.MarkProjectCancelled(ctx, order.ProjectID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project cancelled")
	}
	if _, err := repo.CancelSiblingOrders(ctx, order.ProjectID, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel sibling orders")
	}
	return nil
}

// afterPaid runs the post-commit side effects. Failures here are logged, not
// surfaced: the settlement itself is durable and the commission ledger's
// unique order constraint keeps retries safe.
func (s *service) afterPaid(ctx context.Context, kind OrderKind, order *models.Order, digital *models.DigitalOrder, input Input) {
	referral := ""
	amount := int64(0)
	switch kind {
	case OrderKindProject:
		if order.ReferralCode != nil {
			referral = *order.ReferralCode
		}
		amount = order.AmountCents
	case OrderKindDigital:
		if digital.ReferralCode != nil {
			referral = *digital.ReferralCode
		}
		amount = digital.AmountCents
	}
	if referral != "" {
		if err := s.commission.CreditForOrder(ctx, input.OrderID, referral, amount); err != nil {
			s.logg.Error(ctx, "commission credit failed", err)
		}
	}
	if s.notifier != nil {
		s.notifier.OrderSettled(ctx, input.OrderID, enums.OrderStatusPaid)
	}
}

func orderProvider(kind OrderKind, order *models.Order, digital *models.DigitalOrder) enums.PaymentProvider {
	if kind == OrderKindProject {
		return order.Provider
	}
	return digital.Provider
}

func paymentUpdates(input Input) map[string]any {
	updates := map[string]any{
		"status": input.TargetStatus,
	}
	if input.PaymentType != "" {
		updates["payment_type"] = input.PaymentType
	}
	if input.TransactionID != "" {
		updates["transaction_id"] = input.TransactionID
	}
	if len(input.Metadata) > 0 {
		updates["payment_metadata"] = input.Metadata
	}
	return updates
}
