package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *store
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	tracerShutdown tracing.ShutdownFunc
	router         http.Handler
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// Every client opened here is released by Shutdown; if NewApp fails, the
// clients opened so far are released before it returns.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release(context.Background())
		}
	}()

	// Tracing.
	a.tracerShutdown, err = tracing.Init(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Storage.
	a.store, err = openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Product reads go through Redis when it is enabled. Prices for new
	// orders are always read from the store.
	var products repository.ProductRepository = a.store.products
	if cfg.RedisEnabled {
		a.rdb, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		products = cache.NewProductCache(a.store.products, a.rdb, cache.Config{TTL: cfg.ProductCacheTTL}, logger)
	}

	// Kafka.
	var publisher pkgkafka.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Services.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	svcs := handler.Services{
		Catalog: service.NewCatalogService(products, logger),
		Auth:    service.NewAuthService(a.store.users, jwtManager, eventProducer, logger),
		Cart:    service.NewCartService(a.store.users, products, eventProducer, logger),
		Orders:  service.NewOrderService(a.store.users, a.store.products, products, a.store.orders, eventProducer, logger),
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register(a.store.driver, a.store.ping)
	if a.rdb != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	a.router = handler.NewRouter(svcs, jwtManager.Validator(), healthHandler, logger, handler.RouterConfig{
		SeedEnabled:        !cfg.IsProduction(),
		CORS:               middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
		ProductCacheMaxAge: time.Minute,
		PprofCIDRs:         cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      a.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.store.driver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.release(context.Background())
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server
// drains first, then the store, tracer, Kafka producer and Redis client
// are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.release(ctx); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes every opened client, logging each failure.
func (a *App) release(ctx context.Context) error {
	var errs []error
	closeStep := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if a.store != nil {
		closeStep("store", func() error { return a.store.close(ctx) })
		a.store = nil
	}
	if a.tracerShutdown != nil {
		closeStep("tracer", func() error { return a.tracerShutdown(ctx) })
		a.tracerShutdown = nil
	}
	if a.producer != nil {
		closeStep("kafka producer", a.producer.Close)
		a.producer = nil
	}
	if a.rdb != nil {
		closeStep("redis", a.rdb.Close)
		a.rdb = nil
	}
	return errors.Join(errs...)
}
