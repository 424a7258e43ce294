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

	"github.com/frostline/frostline-backend/internal/ai"
	"github.com/frostline/frostline-backend/internal/cron"
	"github.com/frostline/frostline-backend/internal/deals"
	"github.com/frostline/frostline-backend/internal/freight"
	"github.com/frostline/frostline-backend/internal/pricesheets"
	"github.com/frostline/frostline-backend/internal/products"
	"github.com/frostline/frostline-backend/internal/resilience"
	"github.com/frostline/frostline-backend/internal/warehouses"
	"github.com/frostline/frostline-backend/internal/zones"
	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/metrics"
	"github.com/frostline/frostline-backend/pkg/migrate"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/redis"
)

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

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	reg := prometheus.NewRegistry()
	metricsCollector := metrics.NewCronJobMetrics(reg)
	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})

	if cfg.Cron.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Cron.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
		defer metricsServer.Close()
	}
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey(fmt.Sprintf("cron-worker:%s", env))
}

// buildRegistry wires every maintenance job. Deals are expired without the
// assistant since expiry never calls it.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	freightRepo := freight.NewRepository(dbClient.DB())
	zoneService, err := zones.NewService(zones.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	sheets, err := pricesheets.NewService(pricesheets.ServiceParams{
		DB:         dbClient,
		Repo:       pricesheets.NewRepository(dbClient.DB()),
		Products:   products.NewRepository(dbClient.DB()),
		Rates:      freightRepo,
		Zones:      zoneService,
		Warehouses: warehouses.NewRepository(dbClient.DB()),
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	dealService, err := deals.NewService(deals.ServiceParams{
		DB:     dbClient,
		Repo:   deals.NewRepository(dbClient.DB()),
		AI:     ai.Disabled{},
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}

	sheetJob, err := cron.NewPriceSheetExpiryJob(logg, sheets)
	if err != nil {
		return nil, err
	}
	dealJob, err := cron.NewDealExpiryJob(logg, dealService)
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}
	cleanupJob, err := cron.NewRateLimitCleanupJob(cron.RateLimitCleanupJobParams{
		Logger:  logg,
		Limiter: resilience.NewDBLimiter(dbClient.DB()),
		TTL:     cfg.Cron.RateLimitTTL,
	})
	if err != nil {
		return nil, err
	}
	reportJob, err := cron.NewFreightRateReportJob(cron.FreightRateReportJobParams{
		Logger: logg,
		Rates:  freightRepo,
		Ahead:  cfg.Cron.RateExpiryAhead,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{sheetJob, dealJob, retentionJob, cleanupJob, reportJob} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
