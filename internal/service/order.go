package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderView is an order with its line item products resolved. A product
// missing from Products has left the catalog; the snapshot price remains.
type OrderView struct {
	Order    domain.Order
	Products map[string]*domain.Product
}

// OrderService implements order placement and history.
type OrderService struct {
	users    repository.UserRepository
	prices   repository.ProductRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service. prices is read when an
// order is placed and must be the store itself, not a cache, so captured
// prices are current. products resolves history and may be cached.
func NewOrderService(
	users repository.UserRepository,
	prices repository.ProductRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		users:    users,
		prices:   prices,
		products: products,
		orders:   orders,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// PlaceOrder turns the user's cart into an order. Each line's current
// catalog price is captured as its priceAtOrder and the total is computed
// from those. The order is stored and the cart emptied as one unit, guarded
// by the cart version that was read, so two concurrent placements against
// the same cart cannot both succeed.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string) (*OrderView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	cart, err := s.users.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidState("cart is empty")
	}

	products, err := s.prices.GetByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("get cart products: %w", err)
	}

	lines := cart.Lines()
	items := make([]domain.OrderLineItem, len(lines))
	for i, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, apperrors.NotFound("product", l.ProductID)
		}
		items[i] = domain.OrderLineItem{
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			PriceAtOrder: p.Price,
		}
	}

	order, err := domain.NewOrder(userID, items, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) || errors.Is(err, domain.ErrAmountOverflow) {
			return nil, apperrors.InvalidInput(err.Error())
		}
		return nil, apperrors.InvalidState(err.Error())
	}

	if err := s.orders.PlaceFromCart(ctx, order, cart.Version); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			orderConflicts.Inc()
			s.logger.WarnContext(ctx, "order placement lost race on cart",
				slog.String("user_id", userID),
				slog.Int64("cart_version", cart.Version),
			)
		}
		return nil, fmt.Errorf("place order: %w", err)
	}
	ordersPlaced.Inc()
	cartWrites.WithLabelValues("clear", "ok").Inc()

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int("items", len(order.Items)),
		slog.String("total", order.TotalPrice.String()),
	)

	return &OrderView{Order: *order, Products: products}, nil
}

// ListOrders returns the user's orders oldest first with products resolved.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]OrderView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var ids []string
	seen := make(map[string]struct{})
	for i := range orders {
		for _, id := range orders[i].ProductIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve order products: %w", err)
	}

	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = OrderView{Order: o, Products: products}
	}
	return views, nil
}
