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

// AddOrUpdateItemInput holds the parameters for setting a cart line.
type AddOrUpdateItemInput struct {
	ProductID string
	Quantity  int
}

// CartLine is a cart line with its product resolved. Product is nil when
// the product has left the catalog since it was added.
type CartLine struct {
	Item    domain.CartLineItem
	Product *domain.Product
}

// CartView is a cart as returned to clients.
type CartView struct {
	Version int64
	Lines   []CartLine
}

// CartService implements the business logic for cart operations.
type CartService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(users repository.UserRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		users:    users,
		products: products,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// GetCart returns the user's cart with products resolved.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	cart, err := s.users.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.resolve(ctx, cart)
}

// AddOrUpdateItem sets the quantity of a product in the cart. An existing
// line for the product keeps its id and gets the new quantity; otherwise a
// line is appended. The cart is written once.
func (s *CartService) AddOrUpdateItem(ctx context.Context, userID string, input AddOrUpdateItemInput) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity < 1 || input.Quantity > domain.MaxQuantity {
		return nil, apperrors.InvalidInput(domain.ErrInvalidQuantity.Error())
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.users.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	line, created, err := cart.Upsert(input.ProductID, input.Quantity, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) {
			return nil, apperrors.InvalidInput(err.Error())
		}
		return nil, err
	}

	err = s.users.SaveCart(ctx, userID, cart)
	cartWrites.WithLabelValues("set_item", outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.publish(ctx, userID, cart, event.CartReasonItemSet)
	s.logger.InfoContext(ctx, "cart item set",
		slog.String("user_id", userID),
		slog.String("product_id", input.ProductID),
		slog.String("line_item_id", line.ID),
		slog.Int("quantity", line.Quantity),
		slog.Bool("created", created),
	)

	return s.resolve(ctx, cart)
}

// RemoveItem deletes one line from the cart. A line id that is not in the
// cart is reported as NotFound, never ignored.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineItemID string) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	cart, err := s.users.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	removed, ok := cart.Remove(lineItemID)
	if !ok {
		return nil, apperrors.NotFound("cart item", lineItemID)
	}

	err = s.users.SaveCart(ctx, userID, cart)
	cartWrites.WithLabelValues("remove_item", outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.publish(ctx, userID, cart, event.CartReasonItemRemoved)
	s.logger.InfoContext(ctx, "cart item removed",
		slog.String("user_id", userID),
		slog.String("line_item_id", removed.ID),
		slog.String("product_id", removed.ProductID),
	)

	return s.resolve(ctx, cart)
}

func (s *CartService) resolve(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	lines := cart.Lines()
	view := &CartView{Version: cart.Version, Lines: make([]CartLine, len(lines))}
	if len(lines) == 0 {
		return view, nil
	}

	products, err := s.products.GetByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("resolve cart products: %w", err)
	}
	for i, l := range lines {
		view.Lines[i] = CartLine{Item: l, Product: products[l.ProductID]}
	}
	return view, nil
}

func (s *CartService) publish(ctx context.Context, userID string, cart *domain.Cart, reason string) {
	if err := s.producer.PublishCartUpdated(ctx, userID, cart, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart updated event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
