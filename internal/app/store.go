package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	mongorepo "github.com/utafrali/storefront/internal/repository/mongo"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
)

// store is an opened storage backend. close releases the underlying client
// and must be called exactly once.
type store struct {
	driver   string
	products repository.ProductRepository
	users    repository.UserRepository
	orders   repository.OrderRepository
	ping     func(ctx context.Context) error
	close    func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store, error) {
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverMemory:
		s := memory.New()
		logger.Warn("using in-memory store, data is lost on restart")
		return &store{
			driver:   config.DriverMemory,
			products: memory.NewProductRepository(s),
			users:    memory.NewUserRepository(s),
			orders:   memory.NewOrderRepository(s),
			ping:     s.Ping,
			close:    func(context.Context) error { return s.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "storefront"); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	return &store{
		driver:   config.DriverPostgres,
		products: postgres.NewProductRepository(pool),
		users:    postgres.NewUserRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		ping:     pool.Ping,
		close:    closePool(pool),
	}, nil
}

func closePool(pool *pgxpool.Pool) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}

func openMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store, error) {
	mCfg := cfg.Mongo()
	client, err := database.NewMongoClient(ctx, mCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", mCfg.Database))

	db := client.Database(mCfg.Database)
	if err := mongorepo.CreateIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("create mongodb indexes: %w", err)
	}

	return &store{
		driver:   config.DriverMongo,
		products: mongorepo.NewProductRepository(db),
		users:    mongorepo.NewUserRepository(db),
		orders:   mongorepo.NewOrderRepository(db),
		ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close:    client.Disconnect,
	}, nil
}
