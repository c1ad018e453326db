// Package mongo implements the repositories on MongoDB. A user's cart is
// embedded in the user document, so every cart write is a single-document
// update guarded by cart_version.
package mongo

import (
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
	ordersCollection   = "orders"
)

type productDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	PriceCents  int64     `bson:"price_cents"`
	Description string    `bson:"description"`
	Image       string    `bson:"image"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toProductDoc(p domain.Product) productDoc {
	return productDoc{
		ID:          p.ID,
		Title:       p.Title,
		PriceCents:  p.Price.Int64(),
		Description: p.Description,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d productDoc) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Title:       d.Title,
		Price:       domain.Money(d.PriceCents),
		Description: d.Description,
		Image:       d.Image,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type cartLineDoc struct {
	ID        string    `bson:"id"`
	ProductID string    `bson:"product_id"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

type userDoc struct {
	ID           string        `bson:"_id"`
	Name         string        `bson:"name"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password_hash"`
	Cart         []cartLineDoc `bson:"cart"`
	CartVersion  int64         `bson:"cart_version"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d userDoc) cart() *domain.Cart {
	lines := make([]domain.CartLineItem, len(d.Cart))
	for i, l := range d.Cart {
		lines[i] = domain.CartLineItem{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity, AddedAt: l.AddedAt}
	}
	return domain.RestoreCart(d.CartVersion, lines)
}

func toCartDocs(lines []domain.CartLineItem) []cartLineDoc {
	out := make([]cartLineDoc, len(lines))
	for i, l := range lines {
		out[i] = cartLineDoc{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity, AddedAt: l.AddedAt}
	}
	return out
}

type orderItemDoc struct {
	ProductID         string `bson:"product_id"`
	Quantity          int    `bson:"quantity"`
	PriceAtOrderCents int64  `bson:"price_at_order_cents"`
}

type orderDoc struct {
	ID         string         `bson:"_id"`
	UserID     string         `bson:"user_id"`
	Items      []orderItemDoc `bson:"items"`
	TotalCents int64          `bson:"total_cents"`
	CreatedAt  time.Time      `bson:"created_at"`
}

func toOrderDoc(o *domain.Order) orderDoc {
	items := make([]orderItemDoc, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDoc{ProductID: it.ProductID, Quantity: it.Quantity, PriceAtOrderCents: it.PriceAtOrder.Int64()}
	}
	return orderDoc{ID: o.ID, UserID: o.UserID, Items: items, TotalCents: o.TotalPrice.Int64(), CreatedAt: o.CreatedAt}
}

func (d orderDoc) toDomain() domain.Order {
	items := make([]domain.OrderLineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = domain.OrderLineItem{ProductID: it.ProductID, Quantity: it.Quantity, PriceAtOrder: domain.Money(it.PriceAtOrderCents)}
	}
	return domain.Order{ID: d.ID, UserID: d.UserID, Items: items, TotalPrice: domain.Money(d.TotalCents), CreatedAt: d.CreatedAt}
}
