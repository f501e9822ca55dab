package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/service/cart"
)

type memoryOrders struct {
	orders      map[int64]*domain.Order
	nextID      int64
	created     int
	deleted     []int64
	totalsSet   int
	listedLimit int
	listedWith  []string
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: map[int64]*domain.Order{}}
}

func (m *memoryOrders) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	m.nextID++
	m.created++
	o.ID = m.nextID
	stored := o
	m.orders[o.ID] = &stored
	out := o
	return &out, nil
}

func (m *memoryOrders) ListByCustomer(_ context.Context, customerID int64, statuses []string, limit int) ([]domain.Order, error) {
	m.listedLimit, m.listedWith = limit, statuses
	var out []domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memoryOrders) SetAddresses(_ context.Context, id int64, billing, shipping domain.Address) error {
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Billing, o.Shipping = billing, shipping
	return nil
}

func (m *memoryOrders) UpdateTotals(_ context.Context, id int64, subtotal, discount, total int64) error {
	m.totalsSet++
	o := m.orders[id]
	o.SubtotalCents, o.DiscountCents, o.TotalCents = subtotal, discount, total
	return nil
}

func (m *memoryOrders) Delete(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.orders, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// fakeCarts resolves token "tok" to customer 7's cart and everything else to the session cart.
type fakeCarts struct {
	customer map[int64]*domain.Cart
	session  map[string]*domain.Cart
	saves    int
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{customer: map[int64]*domain.Cart{}, session: map[string]*domain.Cart{}}
}

func (f *fakeCarts) Resolve(_ context.Context, id domain.Identity) (*cart.Handle, error) {
	if id.TokenID == "tok" {
		c, ok := f.customer[7]
		if !ok {
			c = &domain.Cart{}
			f.customer[7] = c
		}
		return &cart.Handle{Owner: domain.CartOwner{CustomerID: 7}, Cart: c}, nil
	}
	c, ok := f.session[id.Session.ID]
	if !ok {
		c = &domain.Cart{}
		f.session[id.Session.ID] = c
	}
	return &cart.Handle{Owner: domain.CartOwner{SessionID: id.Session.ID}, Cart: c}, nil
}

func (f *fakeCarts) Save(context.Context, *cart.Handle) error {
	f.saves++
	return nil
}

type stubUsers struct{}

func (stubUsers) ResolveToken(_ context.Context, token string) (*domain.Customer, bool, error) {
	if token == "tok" {
		return &domain.Customer{ID: 7}, true, nil
	}
	return nil, false, nil
}

func (stubUsers) ResolveEmail(_ context.Context, email string) (*domain.Customer, bool, error) {
	if email == "known@example.com" {
		return &domain.Customer{ID: 8}, true, nil
	}
	return nil, false, nil
}

type stubFields struct {
	fields domain.CheckoutFields
	err    error
	calls  int
}

func (s *stubFields) CheckoutFields(context.Context) (domain.CheckoutFields, error) {
	s.calls++
	return s.fields, s.err
}

type countingCoupons []string

func (c *countingCoupons) IncrementUsage(_ context.Context, code string) error {
	*c = append(*c, code)
	return nil
}

type countingMetrics struct {
	placed, guests, rolledBack int
}

func (m *countingMetrics) OrderPlaced(guest bool, _ string, _ int64) {
	m.placed++
	if guest {
		m.guests++
	}
}

func (m *countingMetrics) OrderRolledBack() { m.rolledBack++ }

type fixture struct {
	svc     *Service
	orders  *memoryOrders
	carts   *fakeCarts
	fields  *stubFields
	coupons *countingCoupons
	metrics *countingMetrics
	hooks   *hooks.Registry
}

func newFixture() *fixture {
	f := &fixture{
		orders: newMemoryOrders(),
		carts:  newFakeCarts(),
		fields: &stubFields{fields: domain.CheckoutFields{
			Billing:  []string{"first_name", "email"},
			Shipping: []string{"address_1"},
		}},
		coupons: &countingCoupons{},
		metrics: &countingMetrics{},
		hooks:   hooks.New(),
	}
	f.svc = New(Deps{
		Orders:  f.orders,
		Carts:   f.carts,
		Users:   stubUsers{},
		Fields:  f.fields,
		Coupons: f.coupons,
		Hooks:   f.hooks,
		Metrics: f.metrics,
	})
	return f
}

func fill(c *domain.Cart) {
	_, _ = cartops.AddProduct(c, cartops.Addition{
		Product:  domain.Product{ID: 1, Type: domain.ProductSimple, Name: "Mug", PriceCents: 999, Status: domain.ProductPublished, Currency: "USD"},
		Quantity: 2,
	})
}

func guest(session string) domain.Identity {
	return domain.Identity{Session: domain.Session{ID: session}}
}

func fullAddresses() PlaceInput {
	return PlaceInput{
		Billing:  domain.Address{"first_name": "Ada", "email": "ada@example.com"},
		Shipping: domain.Address{"address_1": "1 Loop Rd"},
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), guest("s1"), fullAddresses())
	assert.Equal(t, domain.EEMPTYCART, domain.ErrorCode(err))
	assert.Equal(t, "Your cart is empty. Order was not created.", domain.ErrorMessage(err))
	assert.Zero(t, f.orders.created)
}

func TestPlaceOrder_GuestWithoutAddressesIsRolledBack(t *testing.T) {
	f := newFixture()
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])

	_, err := f.svc.PlaceOrder(context.Background(), guest("s1"), PlaceInput{Billing: domain.Address{"first_name": "Ada"}})
	assert.Equal(t, domain.EMISSINGADDR, domain.ErrorCode(err))
	assert.Equal(t, 1, f.orders.created)
	assert.Len(t, f.orders.deleted, 1)
	assert.Empty(t, f.orders.orders)
	assert.Equal(t, 1, f.metrics.rolledBack)
	assert.Len(t, f.carts.session["s1"].Items, 1, "cart kept after failed placement")
}

func TestPlaceOrder_GuestIncompleteAddressIsRolledBack(t *testing.T) {
	f := newFixture()
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])

	in := fullAddresses()
	in.Billing["email"] = "  "
	_, err := f.svc.PlaceOrder(context.Background(), guest("s1"), in)
	assert.Equal(t, domain.EINCOMPLETE, domain.ErrorCode(err))
	assert.Empty(t, f.orders.orders)
}

func TestPlaceOrder_GuestSuccess(t *testing.T) {
	f := newFixture()
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])

	var fired []string
	for _, name := range []string{hooks.PreOrder, hooks.GuestPreUpdateOrder, hooks.GuestAfterUpdateOrder, hooks.AfterOrder} {
		hook := name
		f.hooks.AddAction(hook, func(context.Context, ...any) { fired = append(fired, hook) })
	}

	o, err := f.svc.PlaceOrder(context.Background(), guest("s1"), fullAddresses())
	require.NoError(t, err)
	assert.Contains(t, o.OrderKey, KeyPrefix)
	assert.Zero(t, o.CustomerID)
	assert.Equal(t, int64(1998), o.TotalCents)
	assert.Equal(t, "Ada", f.orders.orders[o.ID].Billing["first_name"])
	assert.Equal(t, []string{hooks.PreOrder, hooks.GuestPreUpdateOrder, hooks.GuestAfterUpdateOrder, hooks.AfterOrder}, fired)
	assert.True(t, f.carts.session["s1"].IsEmpty())
	assert.Equal(t, 1, f.metrics.guests)
	assert.Equal(t, 1, f.fields.calls)
	assert.Zero(t, f.orders.totalsSet)
}

func TestPlaceOrder_LoggedInSkipsGuestAttachment(t *testing.T) {
	f := newFixture()
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])
	id := domain.Identity{Session: domain.Session{ID: "s1", CustomerID: 3}}

	o, err := f.svc.PlaceOrder(context.Background(), id, PlaceInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), o.CustomerID)
	assert.Empty(t, f.orders.deleted)
	assert.Zero(t, f.metrics.guests)
}

func TestPlaceOrder_TokenCustomerClearsBothCarts(t *testing.T) {
	f := newFixture()
	f.carts.customer[7] = &domain.Cart{}
	fill(f.carts.customer[7])
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])

	in := fullAddresses()
	in.Billing["email"] = "ada@example.com"
	o, err := f.svc.PlaceOrder(context.Background(), domain.Identity{Session: domain.Session{ID: "s1"}, TokenID: "tok"}, in)
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.CustomerID)
	assert.True(t, f.carts.customer[7].IsEmpty())
	assert.True(t, f.carts.session["s1"].IsEmpty())
}

func TestPlaceOrder_UnresolvedTokenIsGuest(t *testing.T) {
	f := newFixture()
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])

	o, err := f.svc.PlaceOrder(context.Background(), domain.Identity{Session: domain.Session{ID: "s1"}, TokenID: "nope"}, fullAddresses())
	require.NoError(t, err)
	assert.Zero(t, o.CustomerID)
}

func TestPlaceOrder_CountsCouponUsage(t *testing.T) {
	f := newFixture()
	c := &domain.Cart{}
	fill(c)
	require.NoError(t, cartops.ApplyCoupon(c, "spring10", &domain.Coupon{Code: "spring10", DiscountType: domain.CouponPercent, Amount: 10, Active: true}, time.Now()))
	f.carts.session["s1"] = c

	o, err := f.svc.PlaceOrder(context.Background(), guest("s1"), fullAddresses())
	require.NoError(t, err)
	assert.Equal(t, int64(1798), o.TotalCents)
	assert.Equal(t, []string{"spring10"}, []string(*f.coupons))
}

func TestPlaceOrder_FieldsFailure(t *testing.T) {
	f := newFixture()
	f.carts.session["s1"] = &domain.Cart{}
	fill(f.carts.session["s1"])
	f.fields.err = errors.New("db down")

	_, err := f.svc.PlaceOrder(context.Background(), guest("s1"), fullAddresses())
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Zero(t, f.orders.created)
}

func TestUserOrders(t *testing.T) {
	f := newFixture()
	_, _ = f.orders.Create(context.Background(), domain.Order{CustomerID: 8, Currency: "USD"})

	got, err := f.svc.UserOrders(context.Background(), domain.Identity{Email: "unknown@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = f.svc.UserOrders(context.Background(), domain.Identity{TokenID: "bad"})
	require.NoError(t, err)
	assert.Empty(t, got)

	f.hooks.AddFilter(hooks.OrderStatuses, func(_ context.Context, v any, _ ...any) any {
		return []string{domain.OrderCompleted}
	})
	got, err = f.svc.UserOrders(context.Background(), domain.Identity{Email: "known@example.com"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{domain.OrderCompleted}, f.orders.listedWith)
	assert.Equal(t, 10, f.orders.listedLimit)
}

func TestFormat_RecomputesStaleTotals(t *testing.T) {
	f := newFixture()
	f.hooks.AddFilter(hooks.OrderFormat, func(_ context.Context, v any, _ ...any) any {
		o := v.(domain.Order)
		o.CustomerNote = "formatted"
		return o
	})
	stale := domain.Order{
		ID:            1,
		Currency:      "USD",
		SubtotalCents: 1000,
		TotalCents:    1000,
		Items: []domain.LineItem{
			{Key: "a", ProductID: 1, Quantity: 2, UnitPriceCents: 999, LineTotalCents: 999},
		},
	}

	out := f.svc.Format(context.Background(), []domain.Order{stale})
	require.Len(t, out, 1)
	assert.Equal(t, int64(1998), out[0].TotalCents)
	assert.Equal(t, int64(1998), out[0].Items[0].LineTotalCents)
	assert.Equal(t, "formatted", out[0].CustomerNote)
	assert.Equal(t, int64(999), stale.Items[0].LineTotalCents, "input left untouched")
}
