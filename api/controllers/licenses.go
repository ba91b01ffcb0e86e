package controllers

import (
	"net/http"

	"github.com/worklane/worklane-backend/api/responses"
	"github.com/worklane/worklane-backend/api/validators"
	"github.com/worklane/worklane-backend/internal/licensing"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type licenseVerifyBody struct {
	Key         string `json:"key" validate:"required"`
	ProductSlug string `json:"product_slug" validate:"omitempty,max=128"`
	DeviceID    string `json:"device_id" validate:"required,max=255"`
}

// LicenseVerify activates a license for a device and reports its state.
// Invalid licenses answer with valid:false and the reason instead of the
// generic error envelope so installers can show the message verbatim.
func LicenseVerify(svc licensing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "licensing service unavailable"))
			return
		}

		var body licenseVerifyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Activate(ctx, licensing.ActivateInput{
			Key:         body.Key,
			ProductSlug: body.ProductSlug,
			DeviceID:    body.DeviceID,
		})
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil {
				switch typed.Code() {
				case pkgerrors.CodeNotFound, pkgerrors.CodeForbidden, pkgerrors.CodeConflict:
					status := pkgerrors.MetadataFor(typed.Code()).HTTPStatus
					responses.WriteSuccessStatus(w, status, map[string]any{
						"valid":   false,
						"message": typed.Message(),
					})
					return
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"valid":   true,
			"product": result.Product,
			"license": result,
		})
	}
}
