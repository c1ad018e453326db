package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxQuantity is the largest quantity a single line may hold. The
// AddOrUpdateCartRequest validate tag in internal/handler/http/dto.go must
// carry the same bound.
const MaxQuantity = 10000

// ErrInvalidQuantity is returned for line quantities outside [1, MaxQuantity].
var ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)

// CartLineItem is one product in a cart. Its ID is stable for the lifetime
// of the line and is what clients use to remove it.
type CartLineItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart holds a user's line items keyed by product id, so a product can
// appear at most once. Version increases by one with every persisted change
// and is what stores compare against to reject concurrent writes.
type Cart struct {
	Version int64
	lines   map[string]CartLineItem
}

func NewCart() *Cart {
	return &Cart{lines: make(map[string]CartLineItem)}
}

// RestoreCart rebuilds a cart loaded from storage. If lines repeat a
// product, the first occurrence wins.
func RestoreCart(version int64, lines []CartLineItem) *Cart {
	c := &Cart{Version: version, lines: make(map[string]CartLineItem, len(lines))}
	for _, l := range lines {
		if _, dup := c.lines[l.ProductID]; !dup {
			c.lines[l.ProductID] = l
		}
	}
	return c
}

// Upsert sets the quantity of productID, overwriting any existing quantity.
// A new line is created when the product is not in the cart yet; the
// returned bool reports whether that happened.
func (c *Cart) Upsert(productID string, quantity int, now time.Time) (CartLineItem, bool, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return CartLineItem{}, false, ErrInvalidQuantity
	}
	if c.lines == nil {
		c.lines = make(map[string]CartLineItem)
	}
	if l, ok := c.lines[productID]; ok {
		l.Quantity = quantity
		c.lines[productID] = l
		return l, false, nil
	}
	l := CartLineItem{ID: uuid.NewString(), ProductID: productID, Quantity: quantity, AddedAt: now.UTC()}
	c.lines[productID] = l
	return l, true, nil
}

// Remove deletes the line with the given line item id.
func (c *Cart) Remove(lineItemID string) (CartLineItem, bool) {
	for pid, l := range c.lines {
		if l.ID == lineItemID {
			delete(c.lines, pid)
			return l, true
		}
	}
	return CartLineItem{}, false
}

// Line returns the line for productID.
func (c *Cart) Line(productID string) (CartLineItem, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

// Lines returns the line items in the order they were first added.
func (c *Cart) Lines() []CartLineItem {
	out := make([]CartLineItem, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ProductIDs returns the products in the cart, in line order.
func (c *Cart) ProductIDs() []string {
	lines := c.Lines()
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// ItemCount is the sum of all quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	return RestoreCart(c.Version, c.Lines())
}
