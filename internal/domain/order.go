package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyOrder is returned when an order would have no items.
var ErrEmptyOrder = errors.New("order has no items")

// OrderLineItem records what was bought at which unit price.
type OrderLineItem struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder Money  `json:"price_at_order"`
}

// LineTotal is PriceAtOrder times Quantity.
func (i OrderLineItem) LineTotal() (Money, error) {
	return i.PriceAtOrder.Times(i.Quantity)
}

// Order is immutable once placed. TotalPrice is computed at creation and
// never recomputed from later catalog prices.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Items      []OrderLineItem `json:"items"`
	TotalPrice Money           `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewOrder assigns an id and computes the total from items. Quantities
// must lie within [1, MaxQuantity] and the total must fit in Money.
func NewOrder(userID string, items []OrderLineItem, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return nil, ErrInvalidQuantity
		}
	}
	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     append([]OrderLineItem(nil), items...),
		CreatedAt: now.UTC(),
	}
	for _, it := range o.Items {
		line, err := it.LineTotal()
		if err != nil {
			return nil, err
		}
		if o.TotalPrice, err = o.TotalPrice.Add(line); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ProductIDs lists the distinct products referenced by the order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; !ok {
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}
