package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const userColumns = `id, name, email, password_hash, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
// Cart lines live in cart_items; users.cart_version guards every write.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user with an empty cart.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (` + userColumns + `, cart_version)
		VALUES ($1, $2, $3, $4, $5, $6, 0)`
	ctx, end := trace(ctx, "users.create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.scanUser(ctx, "users.get", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", id)
	}
	return u, err
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.scanUser(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return u, err
}

// GetCart loads the cart version, then the lines. A write landing between
// the two reads makes a later SaveCart with this cart conflict.
func (r *UserRepository) GetCart(ctx context.Context, userID string) (_ *domain.Cart, err error) {
	query := `SELECT id, product_id, quantity, added_at FROM cart_items WHERE user_id = $1 ORDER BY added_at, id`
	ctx, end := trace(ctx, "cart.get", query)
	defer func() { end(err) }()

	var version int64
	if err := r.pool.QueryRow(ctx, `SELECT cart_version FROM users WHERE id = $1`, userID).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get cart version: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLineItem
	for rows.Next() {
		var l domain.CartLineItem
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity, &l.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return domain.RestoreCart(version, lines), nil
}

// SaveCart rewrites the user's cart lines if cart.Version is current.
func (r *UserRepository) SaveCart(ctx context.Context, userID string, cart *domain.Cart) (err error) {
	ctx, end := trace(ctx, "cart.save", "UPDATE users SET cart_version; DELETE/INSERT cart_items")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := bumpCartVersion(ctx, tx, userID, cart.Version); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	insert := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5)`
	for _, l := range cart.Lines() {
		if _, err := tx.Exec(ctx, insert, l.ID, userID, l.ProductID, l.Quantity, l.AddedAt); err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	cart.Version++
	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, operation, query string, arg any) (_ *domain.User, err error) {
	ctx, end := trace(ctx, operation, query)
	defer func() {
		if errors.Is(err, pgx.ErrNoRows) {
			end(nil)
			return
		}
		end(err)
	}()

	var u domain.User
	err = r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
