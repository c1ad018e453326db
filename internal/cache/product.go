// Package cache puts a Redis read-through cache in front of the product
// repository. Redis is optional at runtime: every call goes through a circuit
// breaker, and any Redis failure falls back to the underlying store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

const keyPrefix = "product:"

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_product_cache_requests_total",
		Help: "Product cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// Config tunes the product cache.
type Config struct {
	TTL     time.Duration
	Breaker BreakerConfig
}

// ProductCache implements repository.ProductRepository by decorating
// another implementation. Only lookups by id are cached; listings and
// writes go straight to the store, and ReplaceAll drops every cached entry.
type ProductCache struct {
	next    repository.ProductRepository
	client  redis.UniversalClient
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[[]string]
	logger  *slog.Logger
}

// NewProductCache wraps next with a Redis cache.
func NewProductCache(next repository.ProductRepository, client redis.UniversalClient, cfg Config, logger *slog.Logger) *ProductCache {
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig("product-cache")
	}
	return &ProductCache{
		next:    next,
		client:  client,
		ttl:     cfg.TTL,
		breaker: newBreaker[[]string](cfg.Breaker, logger),
		logger:  logger,
	}
}

// State reports the breaker state.
func (c *ProductCache) State() gobreaker.State {
	return c.breaker.State()
}

func (c *ProductCache) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	found, err := c.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if p, ok := found[id]; ok {
		return p, nil
	}
	// Go to the store for the canonical not-found error.
	return c.next.GetByID(ctx, id)
}

func (c *ProductCache) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cached, err := c.mget(ctx, ids)
	if err != nil {
		cacheRequests.WithLabelValues("error").Add(float64(len(ids)))
		c.logger.WarnContext(ctx, "product cache unavailable, reading from store", slog.String("error", err.Error()))
		return c.next.GetByIDs(ctx, ids)
	}

	var missing []string
	for i, id := range ids {
		if cached[i] == "" {
			missing = append(missing, id)
			continue
		}
		var p domain.Product
		if err := json.Unmarshal([]byte(cached[i]), &p); err != nil {
			missing = append(missing, id)
			continue
		}
		out[id] = &p
	}
	cacheRequests.WithLabelValues("hit").Add(float64(len(ids) - len(missing)))
	cacheRequests.WithLabelValues("miss").Add(float64(len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.next.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range loaded {
		out[id] = p
	}
	c.store(ctx, loaded)
	return out, nil
}

func (c *ProductCache) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	return c.next.List(ctx, filter)
}

// ReplaceAll writes through and then invalidates. A failed invalidation is
// logged, not returned; entries expire after the TTL regardless.
func (c *ProductCache) ReplaceAll(ctx context.Context, products []domain.Product) error {
	if err := c.next.ReplaceAll(ctx, products); err != nil {
		return err
	}
	if err := c.Invalidate(ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to invalidate product cache", slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes every cached product.
func (c *ProductCache) Invalidate(ctx context.Context) error {
	_, err := c.breaker.Execute(func() ([]string, error) {
		iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("scan product keys: %w", err)
		}
		if len(keys) == 0 {
			return nil, nil
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return nil, fmt.Errorf("delete product keys: %w", err)
		}
		return keys, nil
	})
	return err
}

// mget returns one entry per id, empty for a miss.
func (c *ProductCache) mget(ctx context.Context, ids []string) ([]string, error) {
	return c.breaker.Execute(func() ([]string, error) {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = keyPrefix + id
		}
		vals, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis mget: %w", err)
		}
		out := make([]string, len(vals))
		for i, v := range vals {
			if s, ok := v.(string); ok {
				out[i] = s
			}
		}
		return out, nil
	})
}

func (c *ProductCache) store(ctx context.Context, products map[string]*domain.Product) {
	if len(products) == 0 {
		return
	}
	_, err := c.breaker.Execute(func() ([]string, error) {
		pipe := c.client.Pipeline()
		for id, p := range products {
			data, err := json.Marshal(p)
			if err != nil {
				return nil, fmt.Errorf("marshal product %s: %w", id, err)
			}
			pipe.Set(ctx, keyPrefix+id, data, c.ttl)
		}
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
		c.logger.WarnContext(ctx, "failed to populate product cache", slog.String("error", err.Error()))
	}
}
