package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worklane/worklane-backend/api/controllers"
	webhookcontrollers "github.com/worklane/worklane-backend/api/controllers/webhooks"
	"github.com/worklane/worklane-backend/api/middleware"
	"github.com/worklane/worklane-backend/internal/affiliates"
	"github.com/worklane/worklane-backend/internal/authz"
	checkoutsvc "github.com/worklane/worklane-backend/internal/checkout"
	"github.com/worklane/worklane-backend/internal/coupons"
	"github.com/worklane/worklane-backend/internal/gatewayconfig"
	"github.com/worklane/worklane-backend/internal/licensing"
	"github.com/worklane/worklane-backend/internal/notifications"
	midtranswebhook "github.com/worklane/worklane-backend/internal/webhooks/midtrans"
	stripewebhook "github.com/worklane/worklane-backend/internal/webhooks/stripe"
	"github.com/worklane/worklane-backend/pkg/config"
	"github.com/worklane/worklane-backend/pkg/logger"
	"github.com/worklane/worklane-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            pinger
	Redis         *redis.Client
	Authorizer    authz.Authorizer
	Gateways      gatewayconfig.Service
	Checkout      checkoutsvc.Service
	Coupons       coupons.Service
	Licensing     licensing.Service
	Affiliates    affiliates.Service
	Notifications notifications.Service
	MidtransHook  *midtranswebhook.Service
	StripeHook    *stripewebhook.Service
	StripeGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var idemStore middleware.IdempotencyStore
	var cache pinger
	if deps.Redis != nil {
		idemStore = deps.Redis
		cache = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, cache))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/midtrans", webhookcontrollers.MidtransWebhook(deps.MidtransHook, logg))
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeHook, deps.Gateways, deps.StripeGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Post("/licenses/verify", controllers.LicenseVerify(deps.Licensing, logg))
		r.Post("/coupons/validate", controllers.CouponValidate(deps.Coupons, logg))
		r.Post("/checkout", controllers.Checkout(deps.Checkout, deps.Gateways, logg))
		r.Post("/checkout/digital", controllers.CheckoutDigital(deps.Checkout, deps.Gateways, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(logg))
			r.Get("/ping", controllers.PrivatePing())

			r.Route("/affiliates/payouts", func(r chi.Router) {
				r.Post("/", controllers.RequestPayout(deps.Affiliates, logg))
				r.Get("/", controllers.ListPayouts(deps.Affiliates, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.RequireIdentity(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(deps.Authorizer, authz.CapDecidePayouts, logg))
			r.Post("/payouts/{payoutId}/decision", controllers.DecidePayout(deps.Affiliates, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(deps.Authorizer, authz.CapManageGateways, logg))
			r.Put("/gateways/settings", controllers.SetGatewaySetting(deps.Gateways, logg))
		})
	})

	return r
}
