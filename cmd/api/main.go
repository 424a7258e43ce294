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

	"github.com/frostline/frostline-backend/api/controllers"
	"github.com/frostline/frostline-backend/api/routes"
	"github.com/frostline/frostline-backend/internal/address"
	"github.com/frostline/frostline-backend/internal/customers"
	"github.com/frostline/frostline-backend/internal/deals"
	"github.com/frostline/frostline-backend/internal/freight"
	"github.com/frostline/frostline-backend/internal/packsize"
	"github.com/frostline/frostline-backend/internal/pricesheets"
	"github.com/frostline/frostline-backend/internal/products"
	"github.com/frostline/frostline-backend/internal/warehouses"
	"github.com/frostline/frostline-backend/internal/zones"
	"github.com/frostline/frostline-backend/pkg/bigquery"
	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/freightquote"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/maps"
	"github.com/frostline/frostline-backend/pkg/metrics"
	"github.com/frostline/frostline-backend/pkg/migrate"
	"github.com/frostline/frostline-backend/pkg/outbox"
	"github.com/frostline/frostline-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	aiMetrics := metrics.NewAIMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	assistant, err := buildAI(cfg, logg, dbClient, redisClient, aiMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap ai", err)
		os.Exit(1)
	}

	addressService := address.NewService(nil, assistant.capability, logg)
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			logg.Error(context.Background(), "failed to create maps client", err)
			os.Exit(1)
		}
		addressService = address.NewService(mapsClient, assistant.capability, logg)
	} else {
		logg.Warn(context.Background(), "google maps key missing, geocoding disabled")
	}

	estimator, err := freightquote.NewByName(cfg.FreightQuote)
	if err != nil {
		logg.Error(context.Background(), "failed to create freight estimator", err)
		os.Exit(1)
	}

	var recorder freight.QuoteRecorder = freight.NoopRecorder{}
	if cfg.BigQuery.Enabled(cfg.GCP) {
		bq, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer func() {
			if err := bq.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()
		recorder = bq
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	warehouseRepo := warehouses.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	freightRepo := freight.NewRepository(dbClient.DB())

	warehouseService, err := warehouses.NewService(warehouseRepo, addressService, logg)
	exitOnErr(logg, "warehouse service", err)
	zoneService, err := zones.NewService(zones.NewRepository(dbClient.DB()))
	exitOnErr(logg, "zone service", err)
	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()), zoneService, addressService, logg)
	exitOnErr(logg, "customer service", err)

	parser := packsize.NewParser(assistant.capability, logg)
	productService, err := products.NewService(products.ServiceParams{
		Repo:       productRepo,
		Warehouses: warehouseRepo,
		Parser:     parser,
		AI:         assistant.capability,
		Logger:     logg,
	})
	exitOnErr(logg, "product service", err)

	freightService, err := freight.NewService(freight.ServiceParams{
		DB:           dbClient,
		Repo:         freightRepo,
		Warehouses:   warehouseRepo,
		Zones:        zoneService,
		Estimator:    estimator,
		Recorder:     recorder,
		Outbox:       outboxService,
		RateValidity: cfg.FreightQuote.RateValidity,
		Logger:       logg,
	})
	exitOnErr(logg, "freight service", err)

	priceSheetService, err := pricesheets.NewService(pricesheets.ServiceParams{
		DB:         dbClient,
		Repo:       pricesheets.NewRepository(dbClient.DB()),
		Products:   productRepo,
		Rates:      freightRepo,
		Zones:      zoneService,
		Warehouses: warehouseRepo,
		Outbox:     outboxService,
		Logger:     logg,
	})
	exitOnErr(logg, "price sheet service", err)

	dealService, err := deals.NewService(deals.ServiceParams{
		DB:     dbClient,
		Repo:   deals.NewRepository(dbClient.DB()),
		AI:     assistant.capability,
		Outbox: outboxService,
		Logger: logg,
	})
	exitOnErr(logg, "deal service", err)

	deps := routes.Deps{
		Readiness: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Cache:       redisClient,
		Gatherer:    registry,
		Metrics:     httpMetrics,
		Warehouses:  warehouseService,
		Zones:       zoneService,
		Customers:   customerService,
		Products:    productService,
		Freight:     freightService,
		PriceSheets: priceSheetService,
		Deals:       dealService,
		Address:     addressService,
		PackSize:    parser,
	}
	if assistant.breaker != nil {
		deps.AIBreaker = assistant.breaker
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"ai_enabled":  assistant.breaker != nil,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
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
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
