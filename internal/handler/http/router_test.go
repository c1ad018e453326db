package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	users   *memory.UserRepository
	jwt     *auth.JWTManager
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	logger := testLogger()
	store := memory.New()
	users := memory.NewUserRepository(store)
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	producer := event.NewProducer(nil, logger)
	jwt := auth.NewJWTManager("test-secret-test-secret-test-secret", time.Hour)

	require.NoError(t, products.ReplaceAll(context.Background(), []domain.Product{
		{ID: "p1", Title: "Hoodie", Price: 4999, Description: "Warm", Image: "https://img/1"},
		{ID: "p2", Title: "Jeans", Price: 5999, Description: "Blue", Image: "https://img/2"},
		{ID: "p3", Title: "Mat", Price: 3999},
	}))

	authSvc := service.NewAuthService(users, jwt, producer, logger)
	svcs := Services{
		Catalog: service.NewCatalogService(products, logger),
		Auth:    authSvc,
		Cart:    service.NewCartService(users, products, producer, logger),
		Orders:  service.NewOrderService(users, products, products, orders, producer, logger),
	}

	return &testServer{
		handler: NewRouter(svcs, jwt.Validator(), health.NewHandler(), logger, cfg),
		store:   store,
		users:   users,
		jwt:     jwt,
	}
}

// signUp creates a user directly in the store and returns a bearer token.
func (s *testServer) signUp(t *testing.T, id, email string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), &domain.User{
		ID: id, Name: "Test", Email: email, PasswordHash: string(hash),
	}))
	token, err := s.jwt.GenerateToken(id, email)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode[httputil.Response](t, rec)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

// --- Catalog ---

func TestListProducts(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	products := decode[[]ProductResponse](t, rec)
	require.Len(t, products, 3)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, domain.Money(4999), products[0].Price)
}

func TestListProducts_Paginated(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/products?page=2&per_page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items      []ProductResponse `json:"items"`
		TotalCount int               `json:"total_count"`
		HasNext    bool              `json:"has_next"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p3", page.Items[0].ID)
	assert.Equal(t, 3, page.TotalCount)
	assert.False(t, page.HasNext)
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t, RouterConfig{ProductCacheMaxAge: time.Minute})

	rec := s.do(t, http.MethodGet, "/api/v1/products/p2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Equal(t, 59.99, raw["price"])
	assert.Equal(t, "Jeans", raw["title"])

	rec = s.do(t, http.MethodGet, "/api/v1/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestSeedProducts(t *testing.T) {
	disabled := newTestServer(t, RouterConfig{})
	rec := disabled.do(t, http.MethodPost, "/api/v1/dev/seed-products", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s := newTestServer(t, RouterConfig{SeedEnabled: true})
	rec = s.do(t, http.MethodPost, "/api/v1/dev/seed-products", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Products seeded", decode[MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Len(t, decode[[]ProductResponse](t, rec), 8)
}

// --- Auth ---

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Name: "Ana", Email: "Ana@Shop.io", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[AuthResponse](t, rec)
	assert.Equal(t, "ana@shop.io", registered.User.Email)
	assert.NotEmpty(t, registered.Token)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Name: "Ana", Email: "ana@shop.io", Password: "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "ana@shop.io", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	loggedIn := decode[AuthResponse](t, rec)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "ana@shop.io", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The issued token opens the cart.
	rec = s.do(t, http.MethodGet, "/api/v1/cart", loggedIn.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{Name: "Ana", Email: "not-an-email", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	s := newTestServer(t, RouterConfig{AuthRateLimitRPS: 1, AuthRateLimitBurst: 1})

	first := s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "a@b.io", Password: "x"})
	second := s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "a@b.io", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

// --- Cart ---

func TestCart_RequiresToken(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	for _, tc := range []struct{ method, path, token string }{
		{http.MethodGet, "/api/v1/cart", ""},
		{http.MethodPost, "/api/v1/orders", ""},
		{http.MethodGet, "/api/v1/orders", "garbage"},
	} {
		rec := s.do(t, tc.method, tc.path, tc.token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCart_MergeAndRemove(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")

	rec := s.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, decode[CartResponse](t, rec).Cart)

	rec = s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p1", Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec).Cart
	require.Len(t, cart, 1)
	lineID := cart[0].LineItemID
	assert.Equal(t, 2, cart[0].Quantity)
	require.NotNil(t, cart[0].Product)
	assert.Equal(t, "Hoodie", cart[0].Product.Title)

	// Same product again overwrites the quantity in place.
	rec = s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p1", Quantity: 5})
	cart = decode[CartResponse](t, rec).Cart
	require.Len(t, cart, 1)
	assert.Equal(t, lineID, cart[0].LineItemID)
	assert.Equal(t, 5, cart[0].Quantity)

	rec = s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p2", Quantity: 1})
	assert.Len(t, decode[CartResponse](t, rec).Cart, 2)

	rec = s.do(t, http.MethodDelete, "/api/v1/cart/"+lineID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decode[CartResponse](t, rec).Cart
	require.Len(t, cart, 1)
	assert.Equal(t, "p2", cart[0].Product.ID)

	rec = s.do(t, http.MethodDelete, "/api/v1/cart/"+lineID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_AddRejectsBadInput(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"zero quantity", AddOrUpdateCartRequest{ProductID: "p1", Quantity: 0}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"negative quantity", AddOrUpdateCartRequest{ProductID: "p1", Quantity: -3}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quantity above limit", AddOrUpdateCartRequest{ProductID: "p1", Quantity: 10001}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"overflowing quantity", map[string]any{"productId": "p1", "quantity": int64(1) << 61}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing product id", map[string]any{"quantity": 1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown product", AddOrUpdateCartRequest{ProductID: "nope", Quantity: 1}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/cart", token, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestCart_QuantityBoundMatchesDomain(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")

	rec := s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p1", Quantity: domain.MaxQuantity})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec).Cart
	require.Len(t, cart, 1)
	assert.Equal(t, domain.MaxQuantity, cart[0].Quantity)

	rec = s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p1", Quantity: domain.MaxQuantity + 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestCart_RejectsNonJSONBody(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", bytes.NewBufferString("productId=p1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCart_UnknownUserToken(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token, err := s.jwt.GenerateToken("deleted-user", "gone@shop.io")
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Orders ---

func TestOrders_PlaceAndList(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")

	rec := s.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[httputil.Response](t, rec)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)
	assert.Equal(t, "cart is empty", resp.Error.Message)

	s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p1", Quantity: 2})
	s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p3", Quantity: 1})

	rec = s.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, 139.97, raw["totalPrice"])
	assert.Equal(t, "u1", raw["userId"])
	assert.Contains(t, raw, "orderId")
	assert.Contains(t, raw, "createdAt")

	order := decode[OrderResponse](t, rec)
	require.Len(t, order.Items, 2)
	assert.Equal(t, domain.Money(4999), order.Items[0].PriceAtOrder)
	assert.Equal(t, "p1", order.Items[0].Product.ID)

	rec = s.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	assert.Empty(t, decode[CartResponse](t, rec).Cart, "cart cleared by the order")

	rec = s.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]OrderResponse](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, order.OrderID, history[0].OrderID)
	assert.Equal(t, order.TotalPrice, history[0].TotalPrice)
}

func TestOrders_ListEmpty(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")

	rec := s.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestOrders_ConcurrentPlacement(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	token := s.signUp(t, "u1", "u1@shop.io")
	s.do(t, http.MethodPost, "/api/v1/cart", token, AddOrUpdateCartRequest{ProductID: "p1", Quantity: 1})

	const workers = 10
	codes := make([]int, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}()
	}
	close(start)
	wg.Wait()

	created := 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict, http.StatusBadRequest:
		default:
			t.Errorf("unexpected status %d", c)
		}
	}
	assert.Equal(t, 1, created)
}

// --- Health ---

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
