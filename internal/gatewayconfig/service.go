package gatewayconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
)

// Well-known setting keys per provider.
const (
	KeyServerKey  = "server_key"
	KeyClientKey  = "client_key"
	KeyMerchantID = "merchant_id"
	KeyProduction = "production"

	KeySecretKey     = "secret_key"
	KeyWebhookSecret = "webhook_secret"
	KeyActive        = "active"
)

// MidtransConfig is the resolved configuration for the bank-transfer gateway.
type MidtransConfig struct {
	ServerKey  string
	ClientKey  string
	MerchantID string
	Production bool
}

// StripeConfig is the resolved configuration for the checkout/subscription gateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Active        bool
}

// Service resolves per-provider gateway configuration from the settings store.
type Service interface {
	Midtrans(ctx context.Context) (*MidtransConfig, error)
	Stripe(ctx context.Context) (*StripeConfig, error)
	Set(ctx context.Context, provider enums.PaymentProvider, key, value string) error
}

type service struct {
	repo Repository
}

// NewService wires a gateway config service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gateway settings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Midtrans(ctx context.Context) (*MidtransConfig, error) {
	values, err := s.load(ctx, enums.ProviderMidtrans)
	if err != nil {
		return nil, err
	}
	cfg := &MidtransConfig{
		ServerKey:  values[KeyServerKey],
		ClientKey:  values[KeyClientKey],
		MerchantID: values[KeyMerchantID],
		Production: parseBool(values[KeyProduction]),
	}
	if cfg.ServerKey == "" || cfg.ClientKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "midtrans gateway not configured")
	}
	return cfg, nil
}

func (s *service) Stripe(ctx context.Context) (*StripeConfig, error) {
	values, err := s.load(ctx, enums.ProviderStripe)
	if err != nil {
		return nil, err
	}
	cfg := &StripeConfig{
		SecretKey:     values[KeySecretKey],
		WebhookSecret: values[KeyWebhookSecret],
		Active:        parseBool(values[KeyActive]),
	}
	if cfg.SecretKey == "" || cfg.WebhookSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe gateway not configured")
	}
	return cfg, nil
}

func (s *service) Set(ctx context.Context, provider enums.PaymentProvider, key, value string) error {
	if !provider.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	if err := s.repo.Upsert(ctx, provider, key, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert gateway setting")
	}
	return nil
}

func (s *service) load(ctx context.Context, provider enums.PaymentProvider) (map[string]string, error) {
	settings, err := s.repo.ListByProvider(ctx, provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway settings")
	}
	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}
	return values, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
