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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shutupnraveee/backend/api/routes"
	"github.com/shutupnraveee/backend/internal/affiliates"
	"github.com/shutupnraveee/backend/internal/applications"
	authsvc "github.com/shutupnraveee/backend/internal/auth"
	checkoutsvc "github.com/shutupnraveee/backend/internal/checkout"
	"github.com/shutupnraveee/backend/internal/discounts"
	"github.com/shutupnraveee/backend/internal/fulfillment"
	"github.com/shutupnraveee/backend/internal/orders"
	"github.com/shutupnraveee/backend/internal/pricing"
	"github.com/shutupnraveee/backend/internal/tickets"
	"github.com/shutupnraveee/backend/internal/users"
	"github.com/shutupnraveee/backend/pkg/auth/session"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/mailer"
	"github.com/shutupnraveee/backend/pkg/metrics"
	"github.com/shutupnraveee/backend/pkg/migrate"
	"github.com/shutupnraveee/backend/pkg/paystack"
	"github.com/shutupnraveee/backend/pkg/redis"
	"github.com/shutupnraveee/backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(ctx, cfg.Paystack, logg)
	if err != nil {
		logg.Error(ctx, "failed to create paystack client", err)
		os.Exit(1)
	}

	mailClient, err := mailer.NewClient(ctx, cfg.Resend, logg)
	if err != nil {
		logg.Error(ctx, "failed to create mailer client", err)
		os.Exit(1)
	}

	var gcsClient *gcs.Client
	if cfg.GCS.BucketName != "" {
		gcsClient, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to create gcs client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "gcs bucket not configured, ticket QR codes will be inlined")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	ticketsRepo := tickets.NewRepository(dbClient.DB())
	discountsRepo := discounts.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	affiliatesRepo := affiliates.NewRepository(dbClient.DB())
	applicationsRepo := applications.NewRepository(dbClient.DB())

	discountsService, err := discounts.NewService(discountsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create discounts service", err)
		os.Exit(1)
	}

	var assetRemover orders.AssetRemover
	if gcsClient != nil {
		assetRemover = gcsClient
	}
	ordersService, err := orders.NewService(ordersRepo, assetRemover, cfg.GCS.Prefix, logg)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	affiliatesService, err := affiliates.NewService(affiliatesRepo, usersRepo, dbClient, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create affiliates service", err)
		os.Exit(1)
	}

	applicationsService, err := applications.NewService(applicationsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create applications service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(affiliatesRepo, sessionManager, cfg.Admin, cfg.JWT, logg)
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	var assetUploader fulfillment.AssetUploader
	if gcsClient != nil {
		assetUploader = gcsClient
	}
	pipeline, err := fulfillment.NewPipeline(ordersRepo, affiliatesRepo, mailClient, assetUploader, fulfillment.Config{
		PublicURL:    cfg.App.PublicURL,
		ObjectPrefix: cfg.GCS.Prefix,
		EventName:    cfg.Event.Name,
		AdminEmail:   cfg.Resend.AdminEmail,
	}, checkoutMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create fulfillment pipeline", err)
		os.Exit(1)
	}

	resolver := pricing.NewResolver(nil)

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.Deps{
		Tx:           dbClient,
		Orders:       ordersRepo,
		Users:        usersRepo,
		Tickets:      ticketsRepo,
		Discounts:    discountsService,
		DiscountRepo: discountsRepo,
		Affiliates:   affiliatesRepo,
		Resolver:     resolver,
		Gateway:      paystackClient,
		Fulfillment:  pipeline,
		Event:        cfg.Event,
		CallbackURL:  cfg.Paystack.CallbackURL,
		Metrics:      checkoutMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	var gcsPinger gcs.Pinger
	if gcsClient != nil {
		gcsPinger = gcsClient
	}
	router := routes.NewRouter(cfg, logg, dbClient, redisClient, gcsPinger, sessionManager, registry, routes.Services{
		Auth:         authService,
		Checkout:     checkoutService,
		Discounts:    discountsService,
		Orders:       ordersService,
		Affiliates:   affiliatesService,
		Applications: applicationsService,
		Resolver:     resolver,
		Fulfillment:  pipeline,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(startCtx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(startCtx, "api server shutdown failed", err)
		}
	}
}
