package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	cartsvc "lean-commerce/internal/service/cart"
	customersvc "lean-commerce/internal/service/customer"
	ordersvc "lean-commerce/internal/service/order"
	productsvc "lean-commerce/internal/service/product"
)

const testSessionID = "5f0c7a0e-8d5c-4c43-9f65-0a4f7e2d1b11"

type stubCarts struct {
	identity domain.Identity
	added    cartsvc.AddInput
	bulk     []cartops.BulkEntry
	removed  string
	coupon   string
	cleared  bool
	err      error
}

func (s *stubCarts) Get(_ context.Context, id domain.Identity) (*domain.Cart, error) {
	s.identity = id
	return &domain.Cart{Items: []domain.LineItem{}}, s.err
}

func (s *stubCarts) AddProduct(_ context.Context, id domain.Identity, in cartsvc.AddInput) (*domain.Cart, error) {
	s.identity, s.added = id, in
	return &domain.Cart{}, s.err
}

func (s *stubCarts) AddMany(_ context.Context, id domain.Identity, entries []cartops.BulkEntry) (*domain.Cart, error) {
	s.identity, s.bulk = id, entries
	if err := cartops.ValidateBulk(entries); err != nil {
		return nil, err
	}
	return &domain.Cart{}, s.err
}

func (s *stubCarts) RemoveItem(_ context.Context, id domain.Identity, key string) (*domain.Cart, error) {
	s.identity, s.removed = id, key
	return &domain.Cart{}, s.err
}

func (s *stubCarts) ApplyCoupon(_ context.Context, id domain.Identity, code string) (*domain.Cart, error) {
	s.identity, s.coupon = id, code
	return &domain.Cart{}, s.err
}

func (s *stubCarts) Clear(_ context.Context, id domain.Identity) (*domain.Cart, error) {
	s.identity, s.cleared = id, true
	return &domain.Cart{}, s.err
}

type stubOrders struct {
	identity domain.Identity
	placed   ordersvc.PlaceInput
	orders   []domain.Order
	err      error
}

func (s *stubOrders) PlaceOrder(_ context.Context, id domain.Identity, in ordersvc.PlaceInput) (*domain.Order, error) {
	s.identity, s.placed = id, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: 11, OrderKey: "wc_order_x", Status: domain.OrderPending}, nil
}

func (s *stubOrders) UserOrders(_ context.Context, id domain.Identity) ([]domain.Order, error) {
	s.identity = id
	return s.orders, s.err
}

type stubCheckout struct {
	orderID int64
	err     error
}

func (s *stubCheckout) Checkout(_ context.Context, _ domain.Identity, orderID int64) (*domain.PaymentResult, error) {
	s.orderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PaymentResult{Result: "success", OrderID: orderID, Gateway: "bacs", State: "paid"}, nil
}

type stubProducts struct {
	in productsvc.ListInput
}

func (s *stubProducts) List(_ context.Context, in productsvc.ListInput) ([]domain.Product, error) {
	s.in = in
	return []domain.Product{{ID: 1, Name: "Mug"}}, nil
}

type stubCustomers struct {
	signup   customersvc.SignupInput
	customer *domain.Customer
	err      error
}

func (s *stubCustomers) Signup(_ context.Context, in customersvc.SignupInput) (*domain.Customer, string, error) {
	s.signup = in
	return s.customer, "tok", s.err
}

func (s *stubCustomers) Login(_ context.Context, _, _ string) (*domain.Customer, string, error) {
	return s.customer, "tok", s.err
}

type stubSessions struct {
	started  []string
	loggedIn map[string]int64
	err      error
}

func (s *stubSessions) Start(_ context.Context, id string) (*domain.Session, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	s.started = append(s.started, id)
	if id == "" {
		return &domain.Session{ID: testSessionID}, true, nil
	}
	return &domain.Session{ID: id, CustomerID: s.loggedIn[id]}, false, nil
}

func (s *stubSessions) Login(_ context.Context, id string, customerID int64) error {
	if s.loggedIn == nil {
		s.loggedIn = map[string]int64{}
	}
	s.loggedIn[id] = customerID
	return nil
}

func (s *stubSessions) Logout(_ context.Context, id string) error {
	delete(s.loggedIn, id)
	return nil
}

func (s *stubSessions) TTL() time.Duration { return time.Hour }

type fixture struct {
	carts     *stubCarts
	orders    *stubOrders
	checkout  *stubCheckout
	products  *stubProducts
	customers *stubCustomers
	sessions  *stubSessions
	router    *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		carts:     &stubCarts{},
		orders:    &stubOrders{},
		checkout:  &stubCheckout{},
		products:  &stubProducts{},
		customers: &stubCustomers{customer: &domain.Customer{ID: 9, Email: "ada@example.com"}},
		sessions:  &stubSessions{},
	}
	router, err := buildRouter(Options{APIPrefix: "/"}, zap.NewNop(), Deps{
		Carts:     f.carts,
		Orders:    f.orders,
		Checkout:  f.checkout,
		Products:  f.products,
		Customers: f.customers,
		Sessions:  f.sessions,
	})
	require.NoError(t, err)
	f.router = router
	return f
}

// do sends a request on the fixture session. contentType may be empty.
func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: "ln_session", Value: testSessionID})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
