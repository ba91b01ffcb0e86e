package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	"github.com/worklane/worklane-backend/pkg/logger"
)

// Emitter turns settlement and payout outcomes into in-app notifications.
// Emission is fire and forget: a failed notification never fails the flow
// that triggered it.
type Emitter struct {
	repo Repository
	logg *logger.Logger
}

// NewEmitter builds a notification emitter.
func NewEmitter(repo Repository, logg *logger.Logger) (*Emitter, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Emitter{repo: repo, logg: logg}, nil
}

// OrderSettled notifies the project client that their payment landed.
// Digital orders have no account attached and are skipped.
func (e *Emitter) OrderSettled(ctx context.Context, orderID string, status enums.OrderStatus) {
	clientID, err := e.repo.FindClientByOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			e.logg.Error(ctx, "resolve notification recipient", err)
		}
		return
	}

	link := "/orders/" + orderID
	notification := &models.Notification{
		UserID:  clientID,
		Kind:    KindPayment,
		Title:   "Payment received",
		Message: fmt.Sprintf("Payment for order %s is confirmed. Your project has entered the work queue.", orderID),
		Link:    &link,
	}
	if err := e.repo.Create(ctx, notification); err != nil {
		e.logg.Error(ctx, "create settlement notification", err)
	}
}

// PayoutDecided notifies the affiliate about the resolution of their payout
// request.
func (e *Emitter) PayoutDecided(ctx context.Context, payoutID uuid.UUID, status enums.PayoutStatus) {
	userID, err := e.repo.FindAffiliateUserByPayout(ctx, payoutID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			e.logg.Error(ctx, "resolve payout recipient", err)
		}
		return
	}

	title := "Payout rejected"
	message := "Your payout request was rejected. Contact support for details."
	if status == enums.PayoutStatusPaid {
		title = "Payout approved"
		message = "Your payout request was approved and is on its way to your bank account."
	}

	link := "/affiliates/payouts"
	notification := &models.Notification{
		UserID:  userID,
		Kind:    KindPayout,
		Title:   title,
		Message: message,
		Link:    &link,
	}
	if err := e.repo.Create(ctx, notification); err != nil {
		e.logg.Error(ctx, "create payout notification", err)
	}
}
