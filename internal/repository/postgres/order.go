package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// PlaceFromCart claims the cart version, empties the cart and inserts the
// order with its items in one transaction.
func (r *OrderRepository) PlaceFromCart(ctx context.Context, o *domain.Order, cartVersion int64) (err error) {
	ctx, end := trace(ctx, "orders.place", "UPDATE users SET cart_version; DELETE cart_items; INSERT orders")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := bumpCartVersion(ctx, tx, o.UserID, cartVersion); err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_cents, created_at)
		VALUES ($1, $2, $3, $4)`,
		o.ID, o.UserID, o.TotalPrice.Int64(), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, position, product_id, quantity, price_at_order_cents)
		VALUES ($1, $2, $3, $4, $5)`
	for i, item := range o.Items {
		if _, err := tx.Exec(ctx, itemQuery, o.ID, i, item.ProductID, item.Quantity, item.PriceAtOrder.Int64()); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListByUser returns the user's orders oldest first. Items are fetched with
// a second query over all order ids.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) (_ []domain.Order, err error) {
	query := `SELECT id, user_id, total_cents, created_at FROM orders WHERE user_id = $1 ORDER BY created_at, id`
	ctx, end := trace(ctx, "orders.list_by_user", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			o     domain.Order
			total int64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.TotalPrice = domain.Money(total)
		o.Items = []domain.OrderLineItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	itemRows, err := r.pool.Query(ctx, `
		SELECT order_id, product_id, quantity, price_at_order_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    domain.OrderLineItem
			price   int64
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.PriceAtOrder = domain.Money(price)
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return orders, nil
}
