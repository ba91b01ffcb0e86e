package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
)

// Repository exposes the persistence operations of the settlement pipeline.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id string) (*models.Order, error)
	FindDigitalOrder(ctx context.Context, id string) (*models.DigitalOrder, error)
	TransitionOrder(ctx context.Context, id string, from enums.OrderStatus, updates map[string]any) (bool, error)
	TransitionDigitalOrder(ctx context.Context, id string, from enums.OrderStatus, updates map[string]any) (bool, error)
	FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	MarkProjectPaid(ctx context.Context, projectID uuid.UUID) error
	MarkProjectCancelled(ctx context.Context, projectID uuid.UUID) error
	MarkProjectUnpaid(ctx context.Context, projectID uuid.UUID) error
	MarkEstimatePaid(ctx context.Context, estimateID uuid.UUID) error
	CancelSiblingOrders(ctx context.Context, projectID uuid.UUID, exceptOrderID string) (int64, error)
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireStalePendingDigital(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDigitalOrder(ctx context.Context, id string) (*models.DigitalOrder, error) {
	var order models.DigitalOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrder applies updates only while the row is still in the observed
// status. A false return means a concurrent writer moved the order first.
func (r *repository) TransitionOrder(ctx context.Context, id string, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) TransitionDigitalOrder(ctx context.Context, id string, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DigitalOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) MarkProjectPaid(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]any{
			"payment_status": enums.ProjectPaymentStatusPaid,
			"status": gorm.Expr(
				"CASE WHEN status = ? THEN ? ELSE status END",
				enums.ProjectStatusPaymentPending, enums.ProjectStatusQueue,
			),
		}).Error
}

func (r *repository) MarkProjectCancelled(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status = ?", projectID, enums.ProjectStatusPaymentPending).
		Update("status", enums.ProjectStatusCancelled).Error
}

func (r *repository) MarkProjectUnpaid(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", projectID).
		Update("payment_status", enums.ProjectPaymentStatusUnpaid).Error
}

func (r *repository) MarkEstimatePaid(ctx context.Context, estimateID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Estimate{}).
		Where("id = ?", estimateID).
		Update("status", enums.EstimateStatusPaid).Error
}

// CancelSiblingOrders voids other open payment attempts against the same
// project once one of them has settled or been cancelled.
func (r *repository) CancelSiblingOrders(ctx context.Context, projectID uuid.UUID, exceptOrderID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("project_id = ? AND id <> ? AND status IN ?",
			projectID, exceptOrderID,
			[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusWaitingVerification},
		).
		Update("status", enums.OrderStatusCancelled)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ExpireStalePending marks payment attempts that never received a gateway
// callback as expired so they stop blocking new checkouts.
func (r *repository) ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Update("status", enums.OrderStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ExpireStalePendingDigital(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DigitalOrder{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Update("status", enums.OrderStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
