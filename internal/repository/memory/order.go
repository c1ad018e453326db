package memory

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository in memory.
type OrderRepository struct {
	s *Store
}

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{s: s}
}

func (r *OrderRepository) PlaceFromCart(_ context.Context, o *domain.Order, cartVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[o.UserID]
	if !ok {
		return apperrors.NotFound("user", o.UserID)
	}
	if rec.cartVersion != cartVersion {
		return apperrors.Conflict("cart was modified concurrently")
	}
	rec.cart = nil
	rec.cartVersion++
	r.s.orders = append(r.s.orders, copyOrder(*o))
	return nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Order{}
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}
