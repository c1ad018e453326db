package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/seed"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CatalogService serves product reads and reseeding.
type CatalogService struct {
	products repository.ProductRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// GetProduct returns one product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts returns products in creation order and the total count.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// SeedProducts replaces the catalog with the built-in initial products.
func (s *CatalogService) SeedProducts(ctx context.Context) ([]domain.Product, error) {
	products := seed.Products(s.now())
	if err := s.products.ReplaceAll(ctx, products); err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}

	s.logger.InfoContext(ctx, "catalog seeded", slog.Int("products", len(products)))
	return products, nil
}
