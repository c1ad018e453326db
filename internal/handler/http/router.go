package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services groups the business services the router dispatches to.
type Services struct {
	Catalog *service.CatalogService
	Auth    *service.AuthService
	Cart    *service.CartService
	Orders  *service.OrderService
}

// RouterConfig holds the HTTP-level knobs of the router.
type RouterConfig struct {
	// SeedEnabled mounts POST /api/v1/dev/seed-products.
	SeedEnabled        bool
	CORS               middleware.CORSConfig
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
	ProductCacheMaxAge time.Duration
	PprofCIDRs         []string
	RequestTimeout     time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svcs Services,
	tokens middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health", healthHandler.LivenessHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authHandler := NewAuthHandler(svcs.Auth, logger)
	productHandler := NewProductHandler(svcs.Catalog, logger)
	cartHandler := NewCartHandler(svcs.Cart, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimitRPS > 0 {
				r.Use(middleware.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/products", func(r chi.Router) {
			if cfg.ProductCacheMaxAge > 0 {
				r.Use(middleware.CacheControl(cfg.ProductCacheMaxAge))
			}
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		if cfg.SeedEnabled {
			r.Post("/dev/seed-products", productHandler.SeedProducts)
		}

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			r.Use(middleware.NoStore)

			r.Get("/cart", cartHandler.GetCart)
			r.Post("/cart", cartHandler.AddOrUpdateItem)
			r.Delete("/cart/{id}", cartHandler.RemoveItem)

			r.Post("/orders", orderHandler.PlaceOrder)
			r.Get("/orders", orderHandler.ListOrders)
		})
	})

	return r
}
