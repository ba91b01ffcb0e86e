package controllers

import (
	"net/http"

	"github.com/worklane/worklane-backend/api/responses"
	"github.com/worklane/worklane-backend/api/validators"
	"github.com/worklane/worklane-backend/internal/coupons"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type couponValidateBody struct {
	Code        string `json:"code" validate:"required,max=64"`
	AmountCents int64  `json:"amount_cents" validate:"omitempty,min=0"`
}

// CouponValidate checks a coupon and quotes the discount against the given
// amount without consuming a use.
func CouponValidate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var body couponValidateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		code := validators.SanitizeString(body.Code, 64)
		quote, err := svc.Validate(ctx, code, body.AmountCents)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
