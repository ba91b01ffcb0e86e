package midtranswebhook

import (
	"context"
	"fmt"

	"github.com/worklane/worklane-backend/internal/gatewayconfig"
	"github.com/worklane/worklane-backend/internal/settlement"
	"github.com/worklane/worklane-backend/pkg/enums"
	"github.com/worklane/worklane-backend/pkg/logger"
	"github.com/worklane/worklane-backend/pkg/types"
)

type configSource interface {
	Midtrans(ctx context.Context) (*gatewayconfig.MidtransConfig, error)
}

type settler interface {
	Apply(ctx context.Context, input settlement.Input) (*settlement.Outcome, error)
}

// Service verifies midtrans payment notifications and feeds them into the
// settlement pipeline.
type Service struct {
	config     configSource
	settlement settler
	logg       *logger.Logger
}

// NewService builds the midtrans webhook service.
func NewService(config configSource, settler settler, logg *logger.Logger) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("gateway config source required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{config: config, settlement: settler, logg: logg}, nil
}

// HandleNotification authenticates and settles one notification. Signature
// failures are the only rejections; every recognized notification, including
// re-deliveries and unknown orders, is acknowledged.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*settlement.Outcome, error) {
	cfg, err := s.config.Midtrans(ctx)
	if err != nil {
		return nil, err
	}
	if err := VerifySignature(n, cfg.ServerKey); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, n.OrderID)

	target, ok := settlement.MapMidtransStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		s.logg.Info(ctx, fmt.Sprintf("midtrans status %q acknowledged without action", n.TransactionStatus))
		return &settlement.Outcome{OrderID: n.OrderID, Applied: false}, nil
	}

	return s.settlement.Apply(ctx, settlement.Input{
		OrderID:       n.OrderID,
		Provider:      enums.ProviderMidtrans,
		TargetStatus:  target,
		PaymentType:   n.PaymentType,
		TransactionID: n.TransactionID,
		Metadata: types.JSONMap{
			"transaction_status": n.TransactionStatus,
			"fraud_status":       n.FraudStatus,
			"status_code":        n.StatusCode,
			"gross_amount":       n.GrossAmount,
			"transaction_time":   n.TransactionTime,
		},
	})
}
