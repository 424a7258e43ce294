package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frostline/frostline-backend/api/controllers"
	"github.com/frostline/frostline-backend/api/middleware"
	"github.com/frostline/frostline-backend/internal/address"
	"github.com/frostline/frostline-backend/internal/customers"
	"github.com/frostline/frostline-backend/internal/deals"
	"github.com/frostline/frostline-backend/internal/freight"
	"github.com/frostline/frostline-backend/internal/pricesheets"
	"github.com/frostline/frostline-backend/internal/products"
	"github.com/frostline/frostline-backend/internal/warehouses"
	"github.com/frostline/frostline-backend/internal/zones"
	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/enums"
	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/metrics"
	pkgredis "github.com/frostline/frostline-backend/pkg/redis"
)

// Cache is the Redis surface the HTTP middleware needs.
type Cache interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything the API router wires. Nil services answer with an
// internal error; a nil AIBreaker reports AI as disabled.
type Deps struct {
	Readiness map[string]controllers.Pinger
	Cache     Cache
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.HTTPMetrics

	Warehouses  warehouses.Service
	Zones       zones.Service
	Customers   customers.Service
	Products    products.Service
	Freight     freight.Service
	PriceSheets pricesheets.Service
	Deals       deals.Service
	Address     address.Service
	PackSize    controllers.PackSizeParser
	AIBreaker   controllers.BreakerAdmin
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.CORS),
	)

	uploadLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("products_upload", cfg.HTTP.RateLimitWindow, cfg.HTTP.UploadRateLimit), deps.Cache, logg)
	exportLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("price_sheet_export", cfg.HTTP.RateLimitWindow, cfg.HTTP.ExportRateLimit), deps.Cache, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	writers := middleware.RequireWriter(logg)
	admins := middleware.RequireRole(logg, enums.MemberRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.OrgContext(logg))
		r.Use(middleware.Idempotency(deps.Cache, logg))

		r.Route("/warehouses", func(r chi.Router) {
			r.Get("/", controllers.ListWarehouses(deps.Warehouses, logg))
			r.Get("/{id}", controllers.GetWarehouse(deps.Warehouses, logg))
			r.With(writers).Post("/", controllers.CreateWarehouse(deps.Warehouses, logg))
		})

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", controllers.ListZones(deps.Zones, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.CreateZone(deps.Zones, logg))
				r.Put("/{id}", controllers.UpdateZone(deps.Zones, logg))
				r.Delete("/{id}", controllers.DeleteZone(deps.Zones, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.ListCustomers(deps.Customers, logg))
			r.Get("/map", controllers.CustomerMap(deps.Customers, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.CreateCustomer(deps.Customers, logg))
				r.Put("/{id}", controllers.UpdateCustomer(deps.Customers, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/search", controllers.SearchProducts(deps.Products, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.CreateProduct(deps.Products, logg))
				r.With(uploadLimit).Post("/upload", controllers.UploadProducts(deps.Products, logg))
				r.Patch("/{id}", controllers.UpdateProduct(deps.Products, logg))
				r.Delete("/{id}", controllers.DeleteProduct(deps.Products, logg))
				r.Post("/{id}/categorize", controllers.CategorizeProduct(deps.Products, logg))
			})
		})

		r.Post("/pack-size/parse", controllers.ParsePackSize(deps.PackSize, logg))
		r.Post("/pricing/delivered-price", controllers.DeliveredPrice(logg))

		r.Route("/address", func(r chi.Router) {
			r.Get("/suggest", controllers.AddressSuggest(deps.Address, logg))
			r.Get("/resolve", controllers.AddressResolve(deps.Address, logg))
		})

		r.Route("/freight", func(r chi.Router) {
			r.Get("/rates", controllers.ListFreightRates(deps.Freight, logg))
			r.Post("/reefer-estimate", controllers.EstimateReefer(deps.Freight, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/rates", controllers.CreateFreightRate(deps.Freight, logg))
				r.Delete("/rates/{id}", controllers.DeleteFreightRate(deps.Freight, logg))
				r.Post("/quote", controllers.QuoteFreight(deps.Freight, logg))
			})
		})

		r.Route("/price-sheets", func(r chi.Router) {
			r.Get("/", controllers.ListPriceSheets(deps.PriceSheets, logg))
			r.Get("/{id}", controllers.GetPriceSheet(deps.PriceSheets, logg))
			r.With(exportLimit).Get("/{id}/export", controllers.ExportPriceSheet(deps.PriceSheets, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.GeneratePriceSheet(deps.PriceSheets, logg))
				r.Post("/{id}/publish", controllers.PublishPriceSheet(deps.PriceSheets, logg))
				r.Post("/{id}/archive", controllers.ArchivePriceSheet(deps.PriceSheets, logg))
			})
		})

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", controllers.ListDeals(deps.Deals, logg))
			r.Get("/{id}", controllers.GetDeal(deps.Deals, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/extract", controllers.ExtractDeal(deps.Deals, logg))
				r.Post("/{id}/accept", controllers.AcceptDeal(deps.Deals, logg))
				r.Post("/{id}/reject", controllers.RejectDeal(deps.Deals, logg))
			})
		})

		r.Route("/admin/ai", func(r chi.Router) {
			r.Use(admins)
			r.Get("/status", controllers.AIStatus(deps.AIBreaker, logg))
			r.Post("/breaker/reset", controllers.ResetAIBreaker(deps.AIBreaker, logg))
		})
	})

	return r
}
