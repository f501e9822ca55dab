package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	cartsvc "lean-commerce/internal/service/cart"
)

var (
	tokenArg    = arg{kind: argString, rules: "max=255"}
	quantityArg = arg{kind: argInt, rules: "max=" + strconv.Itoa(cartops.MaxQuantity)}
)

type cartEndpoint struct {
	carts cartService
}

func (e *cartEndpoint) Path() string { return "/ecommerce/cart" }

func (e *cartEndpoint) Methods() []string {
	return []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
}

func (e *cartEndpoint) Args() map[string]arg {
	return map[string]arg{
		"product_id":     {kind: argInt},
		"quantity":       quantityArg,
		"item_key":       {kind: argString, rules: "max=64"},
		"variation":      {kind: argObject},
		"cart_item_data": {kind: argObject},
		"token_id":       tokenArg,
	}
}

func (e *cartEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	var (
		cart *domain.Cart
		err  error
	)
	switch req.method {
	case http.MethodGet:
		cart, err = e.carts.Get(ctx, req.identity)
	case http.MethodDelete:
		cart, err = e.carts.RemoveItem(ctx, req.identity, req.text("item_key"))
	default:
		cart, err = e.carts.AddProduct(ctx, req.identity, cartsvc.AddInput{
			ProductID:  req.number("product_id"),
			Quantity:   int(req.number("quantity")),
			Variation:  toStringMap(req.object("variation")),
			CustomData: toStringMap(req.object("cart_item_data")),
		})
	}
	if err != nil {
		return nil, err
	}
	return jsonOK(cart), nil
}

type cartMultipleEndpoint struct {
	carts cartService
}

func (e *cartMultipleEndpoint) Path() string      { return "/ecommerce/cart_multiple" }
func (e *cartMultipleEndpoint) Methods() []string { return []string{http.MethodPost} }

func (e *cartMultipleEndpoint) Args() map[string]arg {
	return map[string]arg{"token_id": tokenArg}
}

func (e *cartMultipleEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	entries, err := bulkEntries(req.bulk)
	if err != nil {
		return nil, err
	}
	cart, err := e.carts.AddMany(ctx, req.identity, entries)
	if err != nil {
		return nil, err
	}
	return jsonOK(cart), nil
}

// bulkEntries converts the JSON array body. Entries with a missing or
// malformed product_id keep a zero id and are rejected by cart validation.
func bulkEntries(raw []interface{}) ([]cartops.BulkEntry, error) {
	entries := make([]cartops.BulkEntry, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, domain.Invalid("httpserver.cart_multiple", "Invalid data, array of objects expected.")
		}
		entry := cartops.BulkEntry{}
		if v, ok := convertArg(argInt, obj["product_id"]); ok {
			entry.ProductID = v.(int64)
		}
		if raw, present := obj["quantity"]; present {
			v, ok := convertArg(argInt, raw)
			if !ok {
				return nil, domain.Invalid("httpserver.cart_multiple", "Invalid data, quantity must be an integer.")
			}
			entry.Quantity = int(v.(int64))
		}
		if m, ok := obj["variation"].(map[string]interface{}); ok {
			entry.Variation = toStringMap(m)
		}
		if m, ok := obj["cart_item_data"].(map[string]interface{}); ok {
			entry.CustomData = toStringMap(m)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type emptyCartEndpoint struct {
	carts cartService
}

func (e *emptyCartEndpoint) Path() string      { return "/ecommerce/empty_cart" }
func (e *emptyCartEndpoint) Methods() []string { return []string{http.MethodPost} }

func (e *emptyCartEndpoint) Args() map[string]arg {
	return map[string]arg{"token_id": tokenArg}
}

func (e *emptyCartEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	cart, err := e.carts.Clear(ctx, req.identity)
	if err != nil {
		return nil, err
	}
	return jsonOK(cart), nil
}

type couponEndpoint struct {
	carts cartService
}

func (e *couponEndpoint) Path() string      { return "/ecommerce/coupon" }
func (e *couponEndpoint) Methods() []string { return []string{http.MethodPost} }

func (e *couponEndpoint) Args() map[string]arg {
	return map[string]arg{
		"coupon":   {kind: argString, rules: "max=100"},
		"token_id": tokenArg,
	}
}

func (e *couponEndpoint) Handle(ctx context.Context, req *request) (*response, error) {
	cart, err := e.carts.ApplyCoupon(ctx, req.identity, req.text("coupon"))
	if err != nil {
		return nil, err
	}
	return jsonOK(cart), nil
}
