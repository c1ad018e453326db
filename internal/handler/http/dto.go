package http

import (
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
)

// --- Request DTOs ---

// RegisterRequest is the JSON request body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest is the JSON request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AddOrUpdateCartRequest is the JSON request body for POST /api/v1/cart.
// The quantity bound mirrors domain.MaxQuantity.
type AddOrUpdateCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// --- Response DTOs ---

type ProductResponse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Price       domain.Money `json:"price"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// CartItemResponse is one cart line. Product is null when the product has
// been removed from the catalog.
type CartItemResponse struct {
	LineItemID string           `json:"lineItemId"`
	Product    *ProductResponse `json:"product"`
	Quantity   int              `json:"quantity"`
}

type CartResponse struct {
	Cart []CartItemResponse `json:"cart"`
}

type OrderItemResponse struct {
	Product      *ProductResponse `json:"product"`
	Quantity     int              `json:"quantity"`
	PriceAtOrder domain.Money     `json:"priceAtOrder"`
}

type OrderResponse struct {
	OrderID    string              `json:"orderId"`
	UserID     string              `json:"userId"`
	Items      []OrderItemResponse `json:"items"`
	TotalPrice domain.Money        `json:"totalPrice"`
	CreatedAt  time.Time           `json:"createdAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// --- Conversions ---

func toProductResponse(p *domain.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Image:       p.Image,
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = *toProductResponse(&products[i])
	}
	return out
}

func toAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		User: UserResponse{
			ID:    res.User.ID,
			Name:  res.User.Name,
			Email: res.User.Email,
		},
		Token: res.Token,
	}
}

func toCartResponse(view *service.CartView) CartResponse {
	items := make([]CartItemResponse, len(view.Lines))
	for i, l := range view.Lines {
		items[i] = CartItemResponse{
			LineItemID: l.Item.ID,
			Product:    toProductResponse(l.Product),
			Quantity:   l.Item.Quantity,
		}
	}
	return CartResponse{Cart: items}
}

func toOrderResponse(view *service.OrderView) OrderResponse {
	o := view.Order
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			Product:      toProductResponse(view.Products[it.ProductID]),
			Quantity:     it.Quantity,
			PriceAtOrder: it.PriceAtOrder,
		}
	}
	return OrderResponse{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      items,
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
	}
}
