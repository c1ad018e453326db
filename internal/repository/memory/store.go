// Package memory keeps the whole store in process. It backs tests and local
// runs with STORE_DRIVER=memory and gives the same conflict guarantees as the
// database drivers by doing every compare-and-set under one lock.
package memory

import (
	"context"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

type userRecord struct {
	user        domain.User
	cartVersion int64
	cart        []domain.CartLineItem
}

// Store is the shared state behind the memory repositories.
type Store struct {
	mu         sync.RWMutex
	products   []domain.Product
	productIdx map[string]int
	users      map[string]*userRecord
	emails     map[string]string
	orders     []domain.Order
}

// New creates an empty store.
func New() *Store {
	return &Store{
		productIdx: make(map[string]int),
		users:      make(map[string]*userRecord),
		emails:     make(map[string]string),
	}
}

// Ping always succeeds; it lets the store sit behind the readiness probe
// like the database drivers do.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderLineItem(nil), o.Items...)
	return o
}
