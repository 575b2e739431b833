package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/cron"
	"github.com/angelmondragon/recurly-gateway/internal/users"
	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/db"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/metrics"
	"github.com/angelmondragon/recurly-gateway/pkg/migrate"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"github.com/angelmondragon/recurly-gateway/pkg/redis"
)

const lockKeyFormat = "rgw:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"entity_type": cfg.Subscriptions.EntityType,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	// Unlike the api, the worker does not start without gateway credentials.
	registry := prometheus.NewRegistry()
	gateway, err := recurly.NewClient(cfg.Recurly, recurly.WithObserver(metrics.NewGatewayMetrics(registry)))
	if err != nil {
		return err
	}

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

	accountService, err := accounts.NewService(accounts.ServiceParams{
		Repo:       accounts.NewRepository(dbClient.DB()),
		Directory:  users.NewRepository(dbClient.DB()),
		Gateway:    gateway,
		EntityType: cfg.Subscriptions.EntityType,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	jobMetrics := metrics.NewJobMetrics(registry)
	reconcileJob, err := cron.NewAccountReconcileJob(cron.AccountReconcileJobParams{
		Logger:     logg,
		Accounts:   accountService,
		Metrics:    jobMetrics,
		BatchSize:  cfg.Reconcile.BatchSize,
		StaleAfter: cfg.Reconcile.StaleAfter,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, lockEnv(cfg.App.Env)), cfg.Reconcile.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{reconcileJob},
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Reconcile.Interval,
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}()

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
