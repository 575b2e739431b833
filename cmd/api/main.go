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

	"github.com/angelmondragon/recurly-gateway/api/controllers"
	"github.com/angelmondragon/recurly-gateway/api/routes"
	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/events"
	"github.com/angelmondragon/recurly-gateway/internal/invoices"
	"github.com/angelmondragon/recurly-gateway/internal/subscriptions"
	"github.com/angelmondragon/recurly-gateway/internal/users"
	recurlywebhook "github.com/angelmondragon/recurly-gateway/internal/webhooks/recurly"
	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/db"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/metrics"
	"github.com/angelmondragon/recurly-gateway/pkg/migrate"
	"github.com/angelmondragon/recurly-gateway/pkg/pubsub"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"github.com/angelmondragon/recurly-gateway/pkg/redis"
)

const (
	pushIdempotencyScope = "recurly_push"
	shutdownTimeout      = 15 * time.Second
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	ready := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	emitter := events.Emitter(events.Nop{})
	if cfg.PubSub.Enabled(cfg.GCP) {
		var psClient *pubsub.Client
		psClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, psClient.Close()) }()
		emitter = events.NewPublisher(psClient.LifecyclePublisher(), logg)
		ready["pubsub"] = psClient
	} else {
		logg.Warn(ctx, "pubsub lifecycle topic not configured; lifecycle events disabled")
	}

	// A nil client answers every call with a configuration error, so the
	// routes stay mounted and report 503 until credentials are provided.
	gateway, err := recurly.NewClient(cfg.Recurly, recurly.WithObserver(metrics.NewGatewayMetrics(registry)))
	if err != nil {
		logg.Warn(logg.WithField(ctx, "reason", err.Error()), "billing gateway not configured")
	}

	userRepo := users.NewRepository(dbClient.DB())
	accountService, err := accounts.NewService(accounts.ServiceParams{
		Repo:       accounts.NewRepository(dbClient.DB()),
		Directory:  userRepo,
		Gateway:    gateway,
		EntityType: cfg.Subscriptions.EntityType,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		Accounts: accountService,
	})
	if err != nil {
		return err
	}

	settings := subscriptions.SettingsFromConfig(cfg.Subscriptions)
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Gateway:  gateway,
		Accounts: accountService,
		Events:   emitter,
		Metrics:  lifecycleMetrics,
		Settings: settings,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Gateway:  gateway,
		Accounts: accountService,
		Policy:   settings.Policy,
		Plans:    settings.Plans,
		PageSize: cfg.Subscriptions.InvoicePageSize,
	})
	if err != nil {
		return err
	}

	pushService, err := recurlywebhook.NewService(recurlywebhook.ServiceParams{
		Gateway:     gateway,
		Accounts:    accountService,
		Events:      emitter,
		Metrics:     lifecycleMetrics,
		ListenerKey: cfg.Push.ListenerKey,
		Subdomain:   cfg.Recurly.Subdomain,
		Logging:     cfg.Push.Logging,
		Logger:      logg,
	})
	if err != nil {
		return err
	}
	pushGuard, err := recurlywebhook.NewIdempotencyGuard(redisClient, cfg.Push.IdempotencyTTL, pushIdempotencyScope)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"entity_type": cfg.Subscriptions.EntityType,
		"mode":        string(settings.Policy.Mode),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, ready, redisClient, registry, routes.Services{
			Subscriptions: subscriptionService,
			Invoices:      invoiceService,
			Users:         userService,
			Push:          pushService,
			PushGuard:     pushGuard,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
