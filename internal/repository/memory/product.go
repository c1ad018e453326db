package memory

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	s *Store
}

func NewProductRepository(s *Store) *ProductRepository {
	return &ProductRepository{s: s}
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.productIdx[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	p := r.s.products[i]
	return &p, nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if i, ok := r.s.productIdx[id]; ok {
			p := r.s.products[i]
			out[id] = &p
		}
	}
	return out, nil
}

func (r *ProductRepository) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := len(r.s.products)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return append([]domain.Product{}, r.s.products[start:end]...), total, nil
}

func (r *ProductRepository) ReplaceAll(_ context.Context, products []domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.products = append([]domain.Product(nil), products...)
	r.s.productIdx = make(map[string]int, len(products))
	for i, p := range r.s.products {
		r.s.productIdx[p.ID] = i
	}
	return nil
}
