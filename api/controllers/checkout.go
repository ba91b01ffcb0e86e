package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/api/responses"
	"github.com/worklane/worklane-backend/api/validators"
	"github.com/worklane/worklane-backend/internal/checkout"
	"github.com/worklane/worklane-backend/internal/gatewayconfig"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type gatewayConfigSource interface {
	Midtrans(ctx context.Context) (*gatewayconfig.MidtransConfig, error)
	Stripe(ctx context.Context) (*gatewayconfig.StripeConfig, error)
}

type checkoutBody struct {
	ProjectID    string `json:"project_id" validate:"required,uuid"`
	Provider     string `json:"provider" validate:"required"`
	CouponCode   string `json:"coupon_code" validate:"omitempty,max=64"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=64"`
}

type digitalCheckoutBody struct {
	ProductID    string `json:"product_id" validate:"omitempty,uuid"`
	ProductSlug  string `json:"product_slug" validate:"omitempty,max=128"`
	Provider     string `json:"provider" validate:"required"`
	CouponCode   string `json:"coupon_code" validate:"omitempty,max=64"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=64"`
}

// Checkout creates a pending payment attempt for a project estimate.
func Checkout(svc checkout.Service, gateways gatewayConfigSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		provider, err := resolveProvider(ctx, gateways, body.Provider)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		projectID, err := uuid.Parse(body.ProjectID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid project id"))
			return
		}

		result, err := svc.CreateProjectOrder(ctx, checkout.ProjectOrderInput{
			ProjectID:    projectID,
			Provider:     provider,
			CouponCode:   body.CouponCode,
			ReferralCode: body.ReferralCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutDigital creates a pending payment attempt for a licensable product.
func CheckoutDigital(svc checkout.Service, gateways gatewayConfigSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body digitalCheckoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if body.ProductID == "" && body.ProductSlug == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id or slug required"))
			return
		}

		provider, err := resolveProvider(ctx, gateways, body.Provider)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := checkout.DigitalOrderInput{
			ProductSlug:  body.ProductSlug,
			Provider:     provider,
			CouponCode:   body.CouponCode,
			ReferralCode: body.ReferralCode,
		}
		if body.ProductID != "" {
			productID, err := uuid.Parse(body.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			input.ProductID = productID
		}

		result, err := svc.CreateDigitalOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// resolveProvider validates the provider token and confirms the gateway is
// configured before any order row is written.
func resolveProvider(ctx context.Context, gateways gatewayConfigSource, raw string) (enums.PaymentProvider, error) {
	provider := enums.PaymentProvider(raw)
	if !provider.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	if gateways == nil {
		return provider, nil
	}
	switch provider {
	case enums.ProviderMidtrans:
		if _, err := gateways.Midtrans(ctx); err != nil {
			return "", err
		}
	case enums.ProviderStripe:
		if _, err := gateways.Stripe(ctx); err != nil {
			return "", err
		}
	}
	return provider, nil
}
