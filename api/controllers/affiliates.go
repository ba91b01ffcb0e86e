package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/worklane/worklane-backend/api/middleware"
	"github.com/worklane/worklane-backend/api/responses"
	"github.com/worklane/worklane-backend/api/validators"
	"github.com/worklane/worklane-backend/internal/affiliates"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type payoutRequestBody struct {
	AmountCents       int64  `json:"amount_cents" validate:"required,min=1"`
	BankName          string `json:"bank_name" validate:"required,max=128"`
	BankAccountName   string `json:"bank_account_name" validate:"required,max=128"`
	BankAccountNumber string `json:"bank_account_number" validate:"required,max=64"`
}

type payoutDecisionBody struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// RequestPayout opens a payout request against the caller's affiliate balance.
func RequestPayout(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliates service unavailable"))
			return
		}

		var body payoutRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payout, err := svc.RequestPayout(ctx, affiliates.RequestPayoutInput{
			UserID:            middleware.UserIDFromContext(ctx),
			AmountCents:       body.AmountCents,
			BankName:          body.BankName,
			BankAccountName:   body.BankAccountName,
			BankAccountNumber: body.BankAccountNumber,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// ListPayouts returns the caller's payout history.
func ListPayouts(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliates service unavailable"))
			return
		}

		payouts, err := svc.ListPayouts(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payouts": payouts})
	}
}

// DecidePayout resolves a pending payout request. Routed behind the
// payouts:decide capability.
func DecidePayout(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliates service unavailable"))
			return
		}

		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		var body payoutDecisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payout, err := svc.DecidePayout(ctx, payoutID, affiliates.PayoutDecision(body.Decision))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}
