package webhooks

import (
	"context"
	"net/http"

	"github.com/worklane/worklane-backend/api/responses"
	"github.com/worklane/worklane-backend/api/validators"
	midtranswebhook "github.com/worklane/worklane-backend/internal/webhooks/midtrans"
	"github.com/worklane/worklane-backend/internal/settlement"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type MidtransWebhookService interface {
	HandleNotification(ctx context.Context, n midtranswebhook.Notification) (*settlement.Outcome, error)
}

// MidtransWebhook receives payment notifications from the midtrans-style
// gateway. Signature failures reject; everything the handler absorbs as a
// no-op still acknowledges with 200 so the gateway stops retrying.
func MidtransWebhook(svc MidtransWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var notification midtranswebhook.Notification
		if err := validators.DecodeJSONBodyLenient(r, &notification); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.HandleNotification(ctx, notification)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":  "ok",
			"applied": outcome.Applied,
		})
	}
}
