package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated    = "ecommerce.cart.updated"
	TopicOrderPlaced    = "ecommerce.order.placed"
	TopicUserRegistered = "ecommerce.user.registered"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
	AggregateTypeUser  = "user"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID      string         `json:"user_id"`
	Items       []CartItemData `json:"items"`
	ItemCount   int            `json:"item_count"`
	CartVersion int64          `json:"cart_version"`
	Reason      string         `json:"reason"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	LineItemID string `json:"line_item_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
}

// Cart update reasons.
const (
	CartReasonItemSet     = "item_set"
	CartReasonItemRemoved = "item_removed"
)

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Items      []OrderItemData `json:"items"`
	TotalCents int64           `json:"total_cents"`
}

// OrderItemData is the item payload within order events.
type OrderItemData struct {
	ProductID         string `json:"product_id"`
	Quantity          int    `json:"quantity"`
	PriceAtOrderCents int64  `json:"price_at_order_cents"`
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Producer publishes storefront domain events. A Producer built without a
// publisher drops every event, which is how the service runs with Kafka
// disabled.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. pub may be nil.
func NewProducer(pub pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  pub,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, userID string, cart *domain.Cart, reason string) error {
	lines := cart.Lines()
	items := make([]CartItemData, len(lines))
	for i, l := range lines {
		items[i] = CartItemData{
			LineItemID: l.ID,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
		}
	}

	data := CartUpdatedData{
		UserID:      userID,
		Items:       items,
		ItemCount:   cart.ItemCount(),
		CartVersion: cart.Version,
		Reason:      reason,
	}
	return p.publish(ctx, TopicCartUpdated, userID, AggregateTypeCart, data)
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, it := range order.Items {
		items[i] = OrderItemData{
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			PriceAtOrderCents: it.PriceAtOrder.Int64(),
		}
	}

	data := OrderPlacedData{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Items:      items,
		TotalCents: order.TotalPrice.Int64(),
	}
	return p.publish(ctx, TopicOrderPlaced, order.ID, AggregateTypeOrder, data)
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event = event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", event.EventID),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
