package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// ProductFilter bounds a catalog listing. Offset skips that many products
// whether or not Limit is set; a zero Limit returns everything after Offset.
type ProductFilter struct {
	Offset int
	Limit  int
}

// ProductRepository defines the interface for catalog persistence.
type ProductRepository interface {
	// GetByID returns apperrors.ErrNotFound when the product does not exist.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs resolves many products in one round trip. Unknown ids are
	// absent from the result rather than an error.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error)

	// List returns products in creation order along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ReplaceAll swaps the whole catalog for products.
	ReplaceAll(ctx context.Context, products []domain.Product) error
}

// UserRepository persists users and the cart each user owns.
type UserRepository interface {
	// Create inserts a user with an empty cart. A duplicate email yields
	// apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetCart loads the cart of userID together with its version.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveCart replaces the stored cart if its version still equals
	// cart.Version, then increments cart.Version. A stale version yields
	// apperrors.ErrConflict and leaves the store untouched.
	SaveCart(ctx context.Context, userID string, cart *domain.Cart) error
}

// OrderRepository persists placed orders.
type OrderRepository interface {
	// PlaceFromCart stores order and empties the cart of order.UserID as one
	// unit, provided the cart is still at cartVersion. Otherwise it returns
	// apperrors.ErrConflict and neither write happens.
	PlaceFromCart(ctx context.Context, order *domain.Order, cartVersion int64) error

	// ListByUser returns the user's orders oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}
