package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type orderFixture struct {
	svc      *OrderService
	users    *mockUserRepository
	products *mockProductRepository
	orders   *mockOrderRepository
	pub      *capturePublisher
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		users:    new(mockUserRepository),
		products: new(mockProductRepository),
		orders:   new(mockOrderRepository),
	}
	producer, pub := newTestProducer()
	f.pub = pub
	f.svc = NewOrderService(f.users, f.products, f.products, f.orders, producer, newTestLogger())
	return f
}

func twoLineCart() *domain.Cart {
	return domain.RestoreCart(3, []domain.CartLineItem{
		{ID: "l1", ProductID: "p1", Quantity: 2, AddedAt: added},
		{ID: "l2", ProductID: "p2", Quantity: 1, AddedAt: added.Add(time.Second)},
	})
}

func TestPlaceOrder_SnapshotsPricesAndTotal(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.users.On("GetCart", ctx, "u1").Return(twoLineCart(), nil)
	f.products.On("GetByIDs", ctx, []string{"p1", "p2"}).Return(map[string]*domain.Product{
		"p1": product("p1", 1000),
		"p2": product("p2", 500),
	}, nil)
	f.orders.On("PlaceFromCart", ctx, mock.AnythingOfType("*domain.Order"), int64(3)).Return(nil)

	view, err := f.svc.PlaceOrder(ctx, "u1")
	require.NoError(t, err)

	o := view.Order
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "u1", o.UserID)
	require.Len(t, o.Items, 2)
	assert.Equal(t, domain.Money(1000), o.Items[0].PriceAtOrder)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, domain.Money(500), o.Items[1].PriceAtOrder)
	assert.Equal(t, domain.Money(2500), o.TotalPrice)
	assert.Equal(t, []string{event.TopicOrderPlaced}, f.pub.Topics())
	f.orders.AssertExpectations(t)
}

func TestPlaceOrder_Unauthorized(t *testing.T) {
	f := newOrderFixture()
	_, err := f.svc.PlaceOrder(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	f.users.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
}

func TestPlaceOrder_UnknownUser(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.users.On("GetCart", ctx, "ghost").Return(nil, apperrors.NotFound("user", "ghost"))

	_, err := f.svc.PlaceOrder(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.users.On("GetCart", ctx, "u1").Return(domain.NewCart(), nil)

	_, err := f.svc.PlaceOrder(ctx, "u1")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "cart is empty", appErr.Message)
	f.orders.AssertNotCalled(t, "PlaceFromCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_ProductLeftCatalog(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.users.On("GetCart", ctx, "u1").Return(twoLineCart(), nil)
	f.products.On("GetByIDs", ctx, []string{"p1", "p2"}).
		Return(map[string]*domain.Product{"p1": product("p1", 1000)}, nil)

	_, err := f.svc.PlaceOrder(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.orders.AssertNotCalled(t, "PlaceFromCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_Conflict(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.users.On("GetCart", ctx, "u1").Return(twoLineCart(), nil)
	f.products.On("GetByIDs", ctx, []string{"p1", "p2"}).Return(map[string]*domain.Product{
		"p1": product("p1", 1000),
		"p2": product("p2", 500),
	}, nil)
	f.orders.On("PlaceFromCart", ctx, mock.Anything, int64(3)).Return(apperrors.Conflict("cart was modified concurrently"))

	_, err := f.svc.PlaceOrder(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.pub.Topics())
}

func TestPlaceOrder_TotalOverflowRejected(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	cart := domain.RestoreCart(3, []domain.CartLineItem{
		{ID: "l1", ProductID: "p1", Quantity: domain.MaxQuantity, AddedAt: added},
	})
	f.users.On("GetCart", ctx, "u1").Return(cart, nil)
	f.products.On("GetByIDs", ctx, []string{"p1"}).Return(map[string]*domain.Product{
		"p1": product("p1", math.MaxInt64/2),
	}, nil)

	_, err := f.svc.PlaceOrder(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.orders.AssertNotCalled(t, "PlaceFromCart", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.pub.Topics())
}

func TestListOrders_ResolvesProducts(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	orders := []domain.Order{
		{ID: "o1", UserID: "u1", Items: []domain.OrderLineItem{{ProductID: "p1", Quantity: 1, PriceAtOrder: 900}}, TotalPrice: 900},
		{ID: "o2", UserID: "u1", Items: []domain.OrderLineItem{{ProductID: "p1", Quantity: 1, PriceAtOrder: 1000}, {ProductID: "p2", Quantity: 2, PriceAtOrder: 50}}, TotalPrice: 1100},
	}
	f.users.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1"}, nil)
	f.orders.On("ListByUser", ctx, "u1").Return(orders, nil)
	f.products.On("GetByIDs", ctx, []string{"p1", "p2"}).
		Return(map[string]*domain.Product{"p1": product("p1", 1200)}, nil)

	views, err := f.svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "o1", views[0].Order.ID)
	assert.Equal(t, domain.Money(900), views[0].Order.Items[0].PriceAtOrder, "snapshot survives catalog price change")
	assert.NotNil(t, views[1].Products["p1"])
	assert.Nil(t, views[1].Products["p2"])
}

func TestListOrders_UnknownUser(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.users.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("user", "ghost"))

	_, err := f.svc.ListOrders(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- End to end against the memory store ---

func newMemoryServices(t *testing.T) (*CartService, *OrderService, *memory.Store) {
	t.Helper()
	store := memory.New()
	users := memory.NewUserRepository(store)
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	producer, _ := newTestProducer()

	ctx := context.Background()
	require.NoError(t, products.ReplaceAll(ctx, []domain.Product{
		{ID: "p1", Title: "Hoodie", Price: 4999},
		{ID: "p2", Title: "Mat", Price: 3999},
	}))
	require.NoError(t, users.Create(ctx, &domain.User{ID: "u1", Name: "Ana", Email: "ana@shop.io"}))

	cartSvc := NewCartService(users, products, producer, newTestLogger())
	orderSvc := NewOrderService(users, products, products, orders, producer, newTestLogger())
	return cartSvc, orderSvc, store
}

func TestPlaceOrder_ClearsCartAndAppearsInHistory(t *testing.T) {
	cartSvc, orderSvc, _ := newMemoryServices(t)
	ctx := context.Background()

	_, err := cartSvc.AddOrUpdateItem(ctx, "u1", AddOrUpdateItemInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	_, err = cartSvc.AddOrUpdateItem(ctx, "u1", AddOrUpdateItemInput{ProductID: "p2", Quantity: 1})
	require.NoError(t, err)

	placed, err := orderSvc.PlaceOrder(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "139.97", placed.Order.TotalPrice.String())

	cart, err := cartSvc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	first, err := orderSvc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	second, err := orderSvc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, placed.Order.ID, first[0].Order.ID)
	assert.Equal(t, first, second, "history reads are idempotent")

	_, err = orderSvc.PlaceOrder(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestListOrders_RepeatedReadsMatch(t *testing.T) {
	cartSvc, orderSvc, _ := newMemoryServices(t)
	ctx := context.Background()

	_, err := cartSvc.AddOrUpdateItem(ctx, "u1", AddOrUpdateItemInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	firstOrder, err := orderSvc.PlaceOrder(ctx, "u1")
	require.NoError(t, err)

	_, err = cartSvc.AddOrUpdateItem(ctx, "u1", AddOrUpdateItemInput{ProductID: "p2", Quantity: 3})
	require.NoError(t, err)
	secondOrder, err := orderSvc.PlaceOrder(ctx, "u1")
	require.NoError(t, err)

	first, err := orderSvc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	second, err := orderSvc.ListOrders(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, firstOrder.Order.ID, first[0].Order.ID)
	assert.Equal(t, secondOrder.Order.ID, first[1].Order.ID)
	assert.Equal(t, "49.99", first[0].Order.TotalPrice.String())
	assert.Equal(t, "119.97", first[1].Order.TotalPrice.String())
	assert.Equal(t, first, second)
}

func TestPlaceOrder_HugeQuantityNeverReachesTotal(t *testing.T) {
	cartSvc, orderSvc, _ := newMemoryServices(t)
	ctx := context.Background()

	_, err := cartSvc.AddOrUpdateItem(ctx, "u1", AddOrUpdateItemInput{ProductID: "p1", Quantity: 1 << 61})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = orderSvc.PlaceOrder(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState, "cart stays empty")

	orders, err := orderSvc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_ConcurrentRequestsDoNotDoubleSpend(t *testing.T) {
	cartSvc, orderSvc, _ := newMemoryServices(t)
	ctx := context.Background()

	_, err := cartSvc.AddOrUpdateItem(ctx, "u1", AddOrUpdateItemInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	const workers = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		other []error
		start = make(chan struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := orderSvc.PlaceOrder(ctx, "u1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			other = append(other, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one placement succeeds")
	for _, err := range other {
		conflict := errors.Is(err, apperrors.ErrConflict)
		emptied := errors.Is(err, apperrors.ErrInvalidState)
		assert.True(t, conflict || emptied, "losers see a conflict or an empty cart, got: %v", err)
	}

	history, err := orderSvc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
