package controllers

import (
	"net/http"

	"github.com/worklane/worklane-backend/api/responses"
	"github.com/worklane/worklane-backend/api/validators"
	"github.com/worklane/worklane-backend/internal/gatewayconfig"
	"github.com/worklane/worklane-backend/pkg/enums"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type gatewaySettingBody struct {
	Provider string `json:"provider" validate:"required"`
	Key      string `json:"key" validate:"required,max=64"`
	Value    string `json:"value" validate:"required"`
}

// SetGatewaySetting upserts one gateway configuration key. Routed behind the
// gateways:manage capability.
func SetGatewaySetting(svc gatewayconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway config service unavailable"))
			return
		}

		var body gatewaySettingBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Set(ctx, enums.PaymentProvider(body.Provider), body.Key, body.Value); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
