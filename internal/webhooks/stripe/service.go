package stripewebhook

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/worklane/worklane-backend/internal/settlement"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
	"github.com/worklane/worklane-backend/pkg/types"
)

type settler interface {
	Apply(ctx context.Context, input settlement.Input) (*settlement.Outcome, error)
}

// Service feeds verified stripe events into the settlement pipeline.
type Service struct {
	settlement settler
	logg       *logger.Logger
}

// NewService builds the stripe webhook service.
func NewService(settler settler, logg *logger.Logger) (*Service, error) {
	if settler == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{settlement: settler, logg: logg}, nil
}

// HandleEvent settles one stripe event. Event types outside the settlement
// mapping and events without an order reference are acknowledged untouched.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (*settlement.Outcome, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	target, ok := settlement.MapStripeEvent(string(event.Type))
	if !ok {
		s.logg.Info(ctx, fmt.Sprintf("stripe event %s acknowledged without action", event.Type))
		return &settlement.Outcome{Applied: false}, nil
	}

	orderID := orderIDFromEvent(event)
	if orderID == "" {
		s.logg.Warn(ctx, fmt.Sprintf("stripe event %s carries no order reference", event.Type))
		return &settlement.Outcome{Applied: false}, nil
	}

	return s.settlement.Apply(ctx, settlement.Input{
		OrderID:       orderID,
		Provider:      enums.ProviderStripe,
		TargetStatus:  target,
		PaymentType:   "stripe",
		TransactionID: event.GetObjectValue("id"),
		Metadata: types.JSONMap{
			"event_id":   event.ID,
			"event_type": string(event.Type),
		},
	})
}

// orderIDFromEvent resolves the platform order behind a stripe object.
// Checkout sessions carry it as client_reference_id; everything else relies
// on the order_id metadata key stamped at session creation.
func orderIDFromEvent(event *stripe.Event) string {
	if id := event.GetObjectValue("metadata", "order_id"); id != "" {
		return id
	}
	return event.GetObjectValue("client_reference_id")
}
