// Package order turns carts into orders and lists a customer's past orders.
package order

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/logging"
	"lean-commerce/internal/service/cart"
	"lean-commerce/internal/telemetry"
)

// KeyPrefix prefixes every order key.
const KeyPrefix = "wc_order_"

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, statuses []string, limit int) ([]domain.Order, error)
	SetAddresses(ctx context.Context, id int64, billing, shipping domain.Address) error
	UpdateTotals(ctx context.Context, id int64, subtotal, discount, total int64) error
	Delete(ctx context.Context, id int64) error
}

type cartStore interface {
	Resolve(ctx context.Context, id domain.Identity) (*cart.Handle, error)
	Save(ctx context.Context, h *cart.Handle) error
}

type userResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.Customer, bool, error)
	ResolveEmail(ctx context.Context, email string) (*domain.Customer, bool, error)
}

type fieldSource interface {
	CheckoutFields(ctx context.Context) (domain.CheckoutFields, error)
}

type couponUsage interface {
	IncrementUsage(ctx context.Context, code string) error
}

type recorder interface {
	OrderPlaced(guest bool, currency string, totalCents int64)
	OrderRolledBack()
}

// Deps are the collaborators of Service. Coupons, Hooks and Metrics are optional.
type Deps struct {
	Orders   orderRepo
	Carts    cartStore
	Users    userResolver
	Fields   fieldSource
	Coupons  couponUsage
	Hooks    *hooks.Registry
	Metrics  recorder
	Currency string
	PageSize int
	Logger   *zap.Logger
}

type Service struct {
	orders   orderRepo
	carts    cartStore
	users    userResolver
	fields   fieldSource
	coupons  couponUsage
	hooks    *hooks.Registry
	metrics  recorder
	currency string
	pageSize int
	newKey   func() string
	tracer   trace.Tracer
	logger   *zap.Logger
}

func New(d Deps) *Service {
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.PageSize <= 0 {
		d.PageSize = 10
	}
	return &Service{
		orders:   d.Orders,
		carts:    d.Carts,
		users:    d.Users,
		fields:   d.Fields,
		coupons:  d.Coupons,
		hooks:    d.Hooks,
		metrics:  d.Metrics,
		currency: d.Currency,
		pageSize: d.PageSize,
		newKey:   func() string { return KeyPrefix + strings.ToLower(ulid.Make().String()) },
		tracer:   telemetry.Tracer("order"),
		logger:   logging.OrNop(d.Logger).Named("order_service"),
	}
}

// PlaceInput is the request body of a place order call. A nil address means
// the key was absent from the body.
type PlaceInput struct {
	Billing       domain.Address
	Shipping      domain.Address
	PaymentMethod string
	CustomerNote  string
}

// placement carries the state of a single PlaceOrder call.
type placement struct {
	identity   domain.Identity
	handle     *cart.Handle
	customerID int64
	required   domain.CheckoutFields
}

// PlaceOrder creates an order from the identity's cart. Requests without a
// logged-in session are guests and must supply complete billing and shipping
// addresses; when they do not, the created order is deleted again.
func (s *Service) PlaceOrder(ctx context.Context, id domain.Identity, in PlaceInput) (_ *domain.Order, err error) {
	const op = "order.place"
	ctx, span := s.tracer.Start(ctx, op)
	defer func() { telemetry.EndSpan(span, err) }()

	h, err := s.carts.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Cart.IsEmpty() {
		return nil, domain.Errorf(domain.EEMPTYCART, op, "Your cart is empty. Order was not created.")
	}
	cartops.Recalculate(h.Cart, s.currency)
	s.hooks.DoAction(ctx, hooks.PreOrder, h.Cart, id)

	p := &placement{identity: id, handle: h}
	if p.required, err = s.fields.CheckoutFields(ctx); err != nil {
		return nil, domain.Internal(err, op, "load checkout fields")
	}
	if p.customerID, err = s.customerFor(ctx, id); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("order.customer_id", p.customerID),
		attribute.Bool("order.guest", !id.LoggedIn()),
		attribute.Int("order.items", len(h.Cart.Items)),
	)

	draft := domain.Order{
		OrderKey:      s.newKey(),
		CustomerID:    p.customerID,
		Status:        domain.OrderPending,
		Currency:      h.Cart.Totals.Currency,
		Items:         append([]domain.LineItem(nil), h.Cart.Items...),
		Coupons:       append([]domain.AppliedCoupon(nil), h.Cart.Coupons...),
		SubtotalCents: h.Cart.Totals.SubtotalCents,
		DiscountCents: h.Cart.Totals.DiscountCents,
		TotalCents:    h.Cart.Totals.TotalCents,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		CustomerNote:  strings.TrimSpace(in.CustomerNote),
	}
	if id.LoggedIn() {
		draft.Billing, draft.Shipping = in.Billing, in.Shipping
	}
	created, err := s.orders.Create(ctx, draft)
	if err != nil {
		return nil, domain.Internal(err, op, "create order")
	}

	if !id.LoggedIn() {
		if err := s.attachGuestAddress(ctx, p, created, in); err != nil {
			s.rollback(ctx, created.ID)
			return nil, err
		}
	}

	if err := s.finalizeTotals(ctx, created); err != nil {
		return nil, err
	}
	s.countCouponUsage(ctx, created)
	s.hooks.DoAction(ctx, hooks.AfterOrder, created, id)
	s.emptyCarts(ctx, p)

	if s.metrics != nil {
		s.metrics.OrderPlaced(created.CustomerID == 0, created.Currency, created.TotalCents)
	}
	s.logger.Info("order placed",
		zap.Int64("order_id", created.ID),
		zap.Int64("customer_id", created.CustomerID),
		zap.Int64("total_cents", created.TotalCents),
	)
	return created, nil
}

// customerFor picks the customer an order is linked to: the token's
// customer, else the email's, else the session login. Unresolved token or
// email yields 0.
func (s *Service) customerFor(ctx context.Context, id domain.Identity) (int64, error) {
	var (
		c   *domain.Customer
		ok  bool
		err error
	)
	switch {
	case id.HasToken():
		c, ok, err = s.users.ResolveToken(ctx, id.TokenID)
	case strings.TrimSpace(id.Email) != "":
		c, ok, err = s.users.ResolveEmail(ctx, id.Email)
	default:
		return id.Session.CustomerID, nil
	}
	if err != nil || !ok {
		return 0, err
	}
	return c.ID, nil
}

// attachGuestAddress validates the supplied addresses against the required
// fields captured for this placement and stores them on the order.
func (s *Service) attachGuestAddress(ctx context.Context, p *placement, o *domain.Order, in PlaceInput) (err error) {
	const op = "order.attach_guest_address"
	ctx, span := s.tracer.Start(ctx, op)
	defer func() { telemetry.EndSpan(span, err) }()

	if in.Billing == nil || in.Shipping == nil {
		return domain.Errorf(domain.EMISSINGADDR, op, "Invalid data, shipping and billing are required.")
	}
	errCount := 0
	if !covers(in.Billing, p.required.Billing) {
		errCount++
	}
	if !covers(in.Shipping, p.required.Shipping) {
		errCount++
	}
	if errCount > 0 {
		return domain.Errorf(domain.EINCOMPLETE, op, "Invalid data, shipping and billing must include all required fields.")
	}

	s.hooks.DoAction(ctx, hooks.GuestPreUpdateOrder, o, in.Billing, in.Shipping)
	if err := s.orders.SetAddresses(ctx, o.ID, in.Billing, in.Shipping); err != nil {
		return domain.Internal(err, op, "store addresses")
	}
	o.Billing, o.Shipping = in.Billing, in.Shipping
	s.hooks.DoAction(ctx, hooks.GuestAfterUpdateOrder, o)
	return nil
}

// covers reports whether addr has a non-blank value for every required field.
func covers(addr domain.Address, required []string) bool {
	for _, field := range required {
		if strings.TrimSpace(addr[field]) == "" {
			return false
		}
	}
	return true
}

func (s *Service) rollback(ctx context.Context, orderID int64) {
	if err := s.orders.Delete(context.WithoutCancel(ctx), orderID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("rollback order failed", zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.OrderRolledBack()
	}
	s.logger.Info("order rolled back", zap.Int64("order_id", orderID))
}

func (s *Service) finalizeTotals(ctx context.Context, o *domain.Order) error {
	cartops.RepriceLines(o.Items)
	t := cartops.ComputeTotals(o.Items, o.Coupons, o.Currency)
	if t.SubtotalCents == o.SubtotalCents && t.DiscountCents == o.DiscountCents && t.TotalCents == o.TotalCents {
		return nil
	}
	if err := s.orders.UpdateTotals(ctx, o.ID, t.SubtotalCents, t.DiscountCents, t.TotalCents); err != nil {
		return domain.Internal(err, "order.finalize", "update totals")
	}
	o.SubtotalCents, o.DiscountCents, o.TotalCents = t.SubtotalCents, t.DiscountCents, t.TotalCents
	return nil
}

func (s *Service) countCouponUsage(ctx context.Context, o *domain.Order) {
	if s.coupons == nil {
		return
	}
	for _, c := range o.Coupons {
		if err := s.coupons.IncrementUsage(ctx, c.Code); err != nil {
			s.logger.Warn("coupon usage not recorded", zap.String("coupon", c.Code), zap.Error(err))
		}
	}
}

// emptyCarts clears the cart the order came from and, for token carts, the
// session cart as well. The order already exists, so failures are logged only.
func (s *Service) emptyCarts(ctx context.Context, p *placement) {
	cartops.Clear(p.handle.Cart)
	if err := s.carts.Save(ctx, p.handle); err != nil {
		s.logger.Warn("cart not emptied after order", zap.Error(err))
	}
	if !p.handle.Owner.TokenBound() || p.identity.Session.ID == "" {
		return
	}
	sh, err := s.carts.Resolve(ctx, domain.Identity{Session: p.identity.Session})
	if err != nil {
		s.logger.Warn("session cart not emptied after order", zap.Error(err))
		return
	}
	if sh.Cart.IsEmpty() {
		return
	}
	cartops.Clear(sh.Cart)
	if err := s.carts.Save(ctx, sh); err != nil {
		s.logger.Warn("session cart not emptied after order", zap.Error(err))
	}
}

// UserOrders lists up to a page of the identity's orders in an allowed
// status. An identity that resolves to no customer has no orders.
func (s *Service) UserOrders(ctx context.Context, id domain.Identity) ([]domain.Order, error) {
	const op = "order.list"
	customerID, err := s.customerFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if customerID == 0 {
		return []domain.Order{}, nil
	}

	statuses := domain.DefaultOrderStatuses
	if filtered, ok := s.hooks.ApplyFilters(ctx, hooks.OrderStatuses, statuses).([]string); ok {
		statuses = filtered
	}
	orders, err := s.orders.ListByCustomer(ctx, customerID, statuses, s.pageSize)
	if err != nil {
		return nil, domain.Internal(err, op, "list orders")
	}
	return s.Format(ctx, orders), nil
}

// Format recomputes each order's totals from its line items and runs the
// order format filter over it.
func (s *Service) Format(ctx context.Context, orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		o.Items = append([]domain.LineItem(nil), o.Items...)
		cartops.RepriceLines(o.Items)
		t := cartops.ComputeTotals(o.Items, o.Coupons, o.Currency)
		o.SubtotalCents, o.DiscountCents, o.TotalCents = t.SubtotalCents, t.DiscountCents, t.TotalCents
		if formatted, ok := s.hooks.ApplyFilters(ctx, hooks.OrderFormat, o).(domain.Order); ok {
			o = formatted
		}
		out = append(out, o)
	}
	return out
}
