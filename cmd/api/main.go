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
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/confirmation"
	"github.com/angelmondragon/storefront/internal/forwarding"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/payments"
	"github.com/angelmondragon/storefront/internal/uploads"
	"github.com/angelmondragon/storefront/internal/wishlist"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
	"github.com/angelmondragon/storefront/pkg/storage/redisstore"
	"github.com/angelmondragon/storefront/pkg/storage/s3"
	"github.com/angelmondragon/storefront/pkg/storage/sqlstore"
	pkgstripe "github.com/angelmondragon/storefront/pkg/stripe"
)

const (
	purgeInterval   = time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error releasing resources", closeErr)
		}
	}()

	store, idem, err := openStorage(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap visitor storage", err)
		os.Exit(1)
	}
	closers = append(closers, store.Close)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflow := metrics.NewWorkflowMetrics(reg)

	backendClient, err := backend.New(cfg.Backend, logg, metrics.NewUpstreamMetrics(reg))
	requireResource(ctx, logg, "backend client", err)

	catalogClient, err := catalog.NewClient(backendClient, cfg.Backend.CatalogTimeout)
	requireResource(ctx, logg, "catalog client", err)

	orderCreator, err := orders.NewBackendCreator(backendClient, cfg.Backend.OrderTimeout)
	requireResource(ctx, logg, "order creator", err)

	carts := cart.NewService(cart.ServiceParams{Store: store, Logger: logg, ShippingCost: cfg.Checkout.ShippingCost})
	wishlists := wishlist.NewService(store, logg)

	intents, processor, verifier, err := paymentStack(ctx, cfg, logg, backendClient)
	requireResource(ctx, logg, "payments", err)

	orchestrator, err := checkout.NewOrchestrator(checkout.Params{
		Carts:     carts,
		Catalog:   catalogClient,
		Orders:    orderCreator,
		Intents:   intents,
		Processor: processor,
		Store:     store,
		ReturnURL: cfg.App.ReturnURL(),
		Metrics:   workflow,
		Logger:    logg,
	})
	requireResource(ctx, logg, "checkout orchestrator", err)

	confirmationHandler, err := confirmation.NewHandler(confirmation.HandlerParams{
		Store:    store,
		Carts:    carts,
		Orders:   orderCreator,
		Verifier: verifier,
		Metrics:  workflow,
		Logger:   logg,
	})
	requireResource(ctx, logg, "confirmation handler", err)

	forwarder, err := forwarding.New(backendClient, logg)
	requireResource(ctx, logg, "forwarder", err)

	deps := routes.Dependencies{
		Config:       cfg,
		Logger:       logg,
		Store:        store,
		Carts:        carts,
		Wishlist:     wishlists,
		Catalog:      catalogClient,
		Checkout:     orchestrator,
		Confirmation: confirmationHandler,
		Forwarder:    forwarder,
		Intents:      intents,
		Idempotency:  idem,
		Gatherer:     reg,
	}

	if cfg.S3.Bucket != "" {
		s3Client, err := s3.New(ctx, cfg.S3, logg)
		requireResource(ctx, logg, "s3", err)
		uploadService, err := uploads.NewService(s3Client, cfg.S3.MaxUploadMB)
		requireResource(ctx, logg, "upload service", err)
		deps.Uploads = uploadService
	} else {
		logg.Warn(ctx, "s3 bucket not configured, uploads disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"storage_driver":  cfg.Storage.Driver,
		"stripe_enabled":  cfg.Stripe.Enabled(),
		"verify_payments": verifier != nil,
	})
	logg.Info(ctx, "starting storefront api")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down storefront api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

// openStorage picks the visitor storage backend. The Redis driver also backs the
// idempotency middleware.
func openStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Store, pkgredis.IdempotencyStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		client, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, cfg.Storage.VisitorTTL), client, nil

	case config.StorageDriverSQL:
		client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		store := sqlstore.New(client, cfg.Storage.VisitorTTL)
		go purgeExpired(ctx, store, logg)
		return store, nil, nil

	default:
		logg.Warn(ctx, "using in-memory visitor storage; state is lost on restart")
		return memory.New(), nil, nil
	}
}

func purgeExpired(ctx context.Context, store *sqlstore.Store, logg *logger.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeExpired(ctx)
			if err != nil {
				logg.Error(ctx, "visitor storage purge failed", err)
				continue
			}
			if removed > 0 {
				logg.Info(logg.WithField(ctx, "removed", removed), "visitor storage purged")
			}
		}
	}
}

// paymentStack uses Stripe directly when a key is configured, otherwise the backend's
// payment-intent endpoint with the browser completing the payment.
func paymentStack(ctx context.Context, cfg *config.Config, logg *logger.Logger, b *backend.Client) (payments.IntentProvider, payments.Processor, payments.Verifier, error) {
	if !cfg.Stripe.Enabled() {
		provider, err := payments.NewBackendProvider(b, cfg.Checkout.Currency)
		if err != nil {
			return nil, nil, nil, err
		}
		return provider, payments.BrowserProcessor{}, nil, nil
	}

	client, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	sp, err := payments.NewStripe(client)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.FeatureFlags.VerifyPayments {
		return sp, sp, sp, nil
	}
	return sp, sp, nil, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
