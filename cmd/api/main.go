package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dishdash-backend/api/controllers"
	"github.com/angelmondragon/dishdash-backend/api/routes"
	"github.com/angelmondragon/dishdash-backend/internal/commissions"
	"github.com/angelmondragon/dishdash-backend/internal/orders"
	"github.com/angelmondragon/dishdash-backend/internal/restaurants"
	squarewebhook "github.com/angelmondragon/dishdash-backend/internal/webhooks/square"
	"github.com/angelmondragon/dishdash-backend/pkg/config"
	"github.com/angelmondragon/dishdash-backend/pkg/db"
	"github.com/angelmondragon/dishdash-backend/pkg/instance"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/migrate"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
	"github.com/angelmondragon/dishdash-backend/pkg/redis"
	"github.com/angelmondragon/dishdash-backend/pkg/square"
)

const (
	squareWebhookScope = "square-webhook"
	shutdownTimeout    = 15 * time.Second
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
		Instance:    instance.ID(),
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

	registry := metrics.NewRegistry()
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	paymentsRepo := commissions.NewRepository(dbClient.DB())
	restaurantsRepo := restaurants.NewRepository(dbClient.DB())

	params := commissions.ServiceParams{
		Logger:      logg,
		DB:          dbClient,
		Ledger:      orders.NewRepository(dbClient.DB()),
		Payments:    paymentsRepo,
		Restaurants: restaurantsRepo,
		Outbox:      outboxService,
		Metrics:     metrics.NewBillingMetrics(registry),
		Billing:     cfg.Billing,
	}

	var (
		squareClient  *square.Client
		squareService *squarewebhook.Service
		squareGuard   *squarewebhook.IdempotencyGuard
	)
	if cfg.Square.Enabled() {
		squareClient, err = square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
		params.Checkout = squareClient
	} else {
		logg.Warn(context.Background(), "square credentials missing, checkout and webhooks disabled")
	}

	commissionService, err := commissions.NewService(params)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	gateService, err := restaurants.NewService(restaurants.ServiceParams{
		Repo:     restaurantsRepo,
		Payments: paymentsRepo,
		DB:       dbClient,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create restaurant service", err)
		os.Exit(1)
	}

	if squareClient != nil {
		squareService, err = squarewebhook.NewService(squarewebhook.ServiceParams{
			Commissions: commissionService,
			Logger:      logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create square webhook service", err)
			os.Exit(1)
		}
		squareGuard, err = squarewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, squareWebhookScope)
		if err != nil {
			logg.Error(context.Background(), "failed to create square webhook guard", err)
			os.Exit(1)
		}
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"timezone": commissionService.Location().String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			registry,
			commissionService,
			gateService,
			squareClient,
			squareService,
			squareGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}
