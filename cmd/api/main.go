package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/worklane/worklane-backend/api/routes"
	"github.com/worklane/worklane-backend/internal/affiliates"
	"github.com/worklane/worklane-backend/internal/authz"
	"github.com/worklane/worklane-backend/internal/checkout"
	"github.com/worklane/worklane-backend/internal/commission"
	"github.com/worklane/worklane-backend/internal/coupons"
	"github.com/worklane/worklane-backend/internal/gatewayconfig"
	"github.com/worklane/worklane-backend/internal/licensing"
	"github.com/worklane/worklane-backend/internal/notifications"
	"github.com/worklane/worklane-backend/internal/settlement"
	midtranswebhook "github.com/worklane/worklane-backend/internal/webhooks/midtrans"
	stripewebhook "github.com/worklane/worklane-backend/internal/webhooks/stripe"
	"github.com/worklane/worklane-backend/pkg/config"
	"github.com/worklane/worklane-backend/pkg/db"
	"github.com/worklane/worklane-backend/pkg/logger"
	"github.com/worklane/worklane-backend/pkg/migrate"
	"github.com/worklane/worklane-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	gatewaySvc, err := gatewayconfig.NewService(gatewayconfig.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "create gateway config service", err)
	}

	couponsSvc, err := coupons.NewService(coupons.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "create coupons service", err)
	}

	checkoutSvc, err := checkout.NewService(checkout.NewRepository(gormDB), dbClient, couponsSvc, cfg.Checkout)
	if err != nil {
		fatal(logg, "create checkout service", err)
	}

	notificationsRepo := notifications.NewRepository(gormDB)
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		fatal(logg, "create notifications service", err)
	}
	emitter, err := notifications.NewEmitter(notificationsRepo, logg)
	if err != nil {
		fatal(logg, "create notification emitter", err)
	}

	commissionSvc, err := commission.NewService(commission.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		fatal(logg, "create commission service", err)
	}

	licensingSvc, err := licensing.NewService(licensing.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		fatal(logg, "create licensing service", err)
	}

	settlementSvc, err := settlement.NewService(
		settlement.NewRepository(gormDB),
		dbClient,
		commissionSvc,
		licensingSvc,
		emitter,
		logg,
	)
	if err != nil {
		fatal(logg, "create settlement service", err)
	}

	affiliatesSvc, err := affiliates.NewService(affiliates.NewRepository(gormDB), dbClient, emitter, logg)
	if err != nil {
		fatal(logg, "create affiliates service", err)
	}

	midtransHook, err := midtranswebhook.NewService(gatewaySvc, settlementSvc, logg)
	if err != nil {
		fatal(logg, "create midtrans webhook service", err)
	}
	stripeHook, err := stripewebhook.NewService(settlementSvc, logg)
	if err != nil {
		fatal(logg, "create stripe webhook service", err)
	}
	stripeGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.EventIdempotencyTTL, "webhooks:stripe")
	if err != nil {
		fatal(logg, "create stripe idempotency guard", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Authorizer:    authz.NewAdminEmailAuthorizer(cfg.Authz.AdminEmails),
			Gateways:      gatewaySvc,
			Checkout:      checkoutSvc,
			Coupons:       couponsSvc,
			Licensing:     licensingSvc,
			Affiliates:    affiliatesSvc,
			Notifications: notificationsSvc,
			MidtransHook:  midtransHook,
			StripeHook:    stripeHook,
			StripeGuard:   stripeGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
