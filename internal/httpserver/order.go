package httpserver

import (
	"context"
	"net/http"

	ordersvc "lean-commerce/internal/service/order"
)

type orderEndpoint struct {
	orders orderService
}

func (e *orderEndpoint) Path() string { return "/ecommerce/order" }

func (e *orderEndpoint) Methods() []string {
	return []string{http.MethodGet, http.MethodPost}
}

func (e *orderEndpoint) Args() map[string]arg {
	return map[string]arg{
		"token_id":       tokenArg,
		"user_email":     {kind: argString, rules: "email"},
		"billing":        {kind: argObject},
		"shipping":       {kind: argObject},
		"payment_method": {kind: argString, rules: "max=64"},
		"customer_note":  {kind: argString, rules: "max=1000"},
	}
}

func (e *orderEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	if req.method == http.MethodGet {
		orders, err := e.orders.UserOrders(ctx, req.identity)
		if err != nil {
			return nil, err
		}
		return jsonOK(orders), nil
	}

	order, err := e.orders.PlaceOrder(ctx, req.identity, ordersvc.PlaceInput{
		Billing:       toAddress(req.object("billing")),
		Shipping:      toAddress(req.object("shipping")),
		PaymentMethod: req.text("payment_method"),
		CustomerNote:  req.text("customer_note"),
	})
	if err != nil {
		return nil, err
	}
	return jsonCreated(order), nil
}

type checkoutEndpoint struct {
	checkout checkoutService
}

func (e *checkoutEndpoint) Path() string      { return "/ecommerce/checkout" }
func (e *checkoutEndpoint) Methods() []string { return []string{http.MethodPost} }

func (e *checkoutEndpoint) Args() map[string]arg {
	return map[string]arg{
		"order_id": {kind: argInt},
		"token_id": tokenArg,
	}
}

func (e *checkoutEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	result, err := e.checkout.Checkout(ctx, req.identity, req.number("order_id"))
	if err != nil {
		return nil, err
	}
	return jsonOK(result), nil
}
