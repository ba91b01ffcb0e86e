package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/worklane/worklane-backend/pkg/logger"
)

const orderExpirationDays = 7

// OrderTTLJobParams configure the stale order scheduler.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders staleOrderExpirer
	TTL    time.Duration
}

type staleOrderExpirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireStalePendingDigital(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOrderTTLJob builds the cron job that expires payment attempts whose
// gateway callback never arrived.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = orderExpirationDays * 24 * time.Hour
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)

	var errs []error
	projectOrders, err := j.orders.ExpireStalePending(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire stale orders: %w", err))
	}
	digitalOrders, err := j.orders.ExpireStalePendingDigital(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire stale digital orders: %w", err))
	}
	if combined := multierr.Combine(errs...); combined != nil {
		return combined
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"orders":         projectOrders,
		"digital_orders": digitalOrders,
	})
	j.logg.Info(logCtx, "order expiration loop complete")
	return nil
}
