package memory

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// UserRepository implements repository.UserRepository in memory.
type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.emails[u.Email]; taken {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	if _, taken := r.s.users[u.ID]; taken {
		return apperrors.AlreadyExists("user", "id", u.ID)
	}
	rec := &userRecord{user: *u}
	rec.user.Cart = nil
	r.s.users[u.ID] = rec
	r.s.emails[u.Email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	u := rec.user
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u := r.s.users[id].user
	return &u, nil
}

func (r *UserRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	return domain.RestoreCart(rec.cartVersion, rec.cart), nil
}

func (r *UserRepository) SaveCart(_ context.Context, userID string, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[userID]
	if !ok {
		return apperrors.NotFound("user", userID)
	}
	if rec.cartVersion != cart.Version {
		return apperrors.Conflict("cart was modified concurrently")
	}
	rec.cart = cart.Lines()
	rec.cartVersion++
	cart.Version = rec.cartVersion
	return nil
}
