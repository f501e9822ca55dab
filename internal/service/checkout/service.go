// Package checkout pays for placed orders through the first enabled gateway.
package checkout

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/logging"
	"lean-commerce/internal/payment"
	"lean-commerce/internal/telemetry"
)

// Checkout states. Paid and Failed are terminal.
const (
	StateIdle            = "idle"
	StateGatewaySelected = "gateway_selected"
	StateAuthorized      = "authorized"
	StatePaid            = "paid"
	StateFailed          = "failed"
)

type orderRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	UpdateTotals(ctx context.Context, id int64, subtotal, discount, total int64) error
	UpdatePayment(ctx context.Context, id int64, status, method, transactionID string) error
}

type gatewayConfig interface {
	List(ctx context.Context) ([]domain.Gateway, error)
}

type gatewayRegistry interface {
	Get(id string) (payment.Gateway, bool)
}

type userResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.Customer, bool, error)
}

type recorder interface {
	Checkout(gateway, state string)
}

// Deps are the collaborators of Service. Hooks and Metrics are optional.
type Deps struct {
	Orders   orderRepo
	Config   gatewayConfig
	Gateways gatewayRegistry
	Users    userResolver
	Hooks    *hooks.Registry
	Metrics  recorder
	Logger   *zap.Logger
}

type Service struct {
	orders   orderRepo
	config   gatewayConfig
	gateways gatewayRegistry
	users    userResolver
	hooks    *hooks.Registry
	metrics  recorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

func New(d Deps) *Service {
	return &Service{
		orders:   d.Orders,
		config:   d.Config,
		gateways: d.Gateways,
		users:    d.Users,
		hooks:    d.Hooks,
		metrics:  d.Metrics,
		tracer:   telemetry.Tracer("checkout"),
		logger:   logging.OrNop(d.Logger).Named("checkout_service"),
	}
}

// attempt tracks one checkout through its states.
type attempt struct {
	orderID int64
	gateway string
	state   string
	logger  *zap.Logger
}

func (a *attempt) to(state string) {
	a.logger.Debug("checkout transition",
		zap.Int64("order_id", a.orderID),
		zap.String("gateway", a.gateway),
		zap.String("from", a.state),
		zap.String("to", state),
	)
	a.state = state
}

// Checkout pays for orderID. Authenticated requesters may only pay their own
// orders; guests are not checked. Only pending or failed orders are paid. A
// failed payment leaves the order as it was.
func (s *Service) Checkout(ctx context.Context, id domain.Identity, orderID int64) (_ *domain.PaymentResult, err error) {
	const op = "checkout.process"
	ctx, span := s.tracer.Start(ctx, op)
	a := &attempt{orderID: orderID, state: StateIdle, logger: s.logger}
	defer func() {
		if err != nil && a.state != StateIdle {
			a.to(StateFailed)
		}
		span.SetAttributes(attribute.String("checkout.gateway", a.gateway), attribute.String("checkout.state", a.state))
		telemetry.EndSpan(span, err)
		if s.metrics != nil && a.state != StateIdle {
			s.metrics.Checkout(a.gateway, a.state)
		}
	}()

	if orderID <= 0 {
		return nil, domain.Invalid(op, "Invalid data, order_id is required.")
	}

	gw, err := s.selectGateway(ctx)
	if err != nil {
		return nil, err
	}
	a.gateway = gw.ID()
	a.to(StateGatewaySelected)

	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound(op, "order", strconv.FormatInt(orderID, 10))
	}
	if err != nil {
		return nil, domain.Internal(err, op, "load order")
	}
	if err := s.authorize(ctx, id, order); err != nil {
		return nil, err
	}
	if !order.NeedsPayment() {
		return nil, domain.Errorf(domain.EREQUEST, op, "Order #%d does not need payment (status %q).", order.ID, order.Status)
	}
	a.to(StateAuthorized)

	s.hooks.DoAction(ctx, hooks.PreCheckout, order, gw.ID())
	if err := s.recalculate(ctx, order); err != nil {
		return nil, err
	}

	result, err := gw.Process(ctx, order)
	if err != nil {
		s.logger.Warn("payment failed", zap.Int64("order_id", order.ID), zap.String("gateway", gw.ID()), zap.Error(err))
		return nil, domain.WrapError(err, domain.EPAYMENT, op, "Payment could not be processed.")
	}
	if result == nil || result.Result != payment.ResultSuccess {
		return nil, domain.Errorf(domain.EPAYMENT, op, "Payment could not be processed.")
	}

	if err := s.orders.UpdatePayment(ctx, order.ID, result.Status, gw.ID(), result.TransactionID); err != nil {
		return nil, domain.Internal(err, op, "record payment")
	}
	order.Status, order.PaymentMethod, order.TransactionID = result.Status, gw.ID(), result.TransactionID
	a.to(StatePaid)

	result.OrderID = order.ID
	result.Gateway = gw.ID()
	result.State = a.state
	s.hooks.DoAction(ctx, hooks.AfterCheckout, order, result)
	return result, nil
}

// selectGateway returns the first enabled gateway, in configuration order,
// that has an implementation.
func (s *Service) selectGateway(ctx context.Context) (payment.Gateway, error) {
	const op = "checkout.select_gateway"
	configured, err := s.config.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "load gateways")
	}
	for _, cfg := range configured {
		if !cfg.Enabled {
			continue
		}
		if gw, ok := s.gateways.Get(cfg.ID); ok {
			return gw, nil
		}
		s.logger.Warn("enabled gateway has no implementation", zap.String("gateway", cfg.ID))
	}
	return nil, domain.Misconfigured(op, "No payment gateway is enabled.")
}

// authorize checks that an authenticated requester owns order. A token that
// resolves to nobody is treated as a guest.
func (s *Service) authorize(ctx context.Context, id domain.Identity, order *domain.Order) error {
	requester := id.Session.CustomerID
	if id.HasToken() {
		c, ok, err := s.users.ResolveToken(ctx, id.TokenID)
		if err != nil {
			return err
		}
		if ok {
			requester = c.ID
		}
	}
	if requester == 0 {
		return nil
	}
	if order.CustomerID != requester {
		return domain.Forbidden("checkout.authorize", "You are not allowed to pay for this order.")
	}
	return nil
}

func (s *Service) recalculate(ctx context.Context, o *domain.Order) error {
	cartops.RepriceLines(o.Items)
	t := cartops.ComputeTotals(o.Items, o.Coupons, o.Currency)
	if t.SubtotalCents == o.SubtotalCents && t.DiscountCents == o.DiscountCents && t.TotalCents == o.TotalCents {
		return nil
	}
	if err := s.orders.UpdateTotals(ctx, o.ID, t.SubtotalCents, t.DiscountCents, t.TotalCents); err != nil {
		return domain.Internal(err, "checkout.recalculate", "update totals")
	}
	o.SubtotalCents, o.DiscountCents, o.TotalCents = t.SubtotalCents, t.DiscountCents, t.TotalCents
	return nil
}
