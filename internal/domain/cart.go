package domain

// CartMetaKey is the customer meta key under which token-bound carts are stored.
const CartMetaKey = "_ln_cart"

// Cart is the line items and coupons owned by one identity. Totals are derived.
type Cart struct {
	Items   []LineItem      `json:"items"`
	Coupons []AppliedCoupon `json:"coupons"`
	Totals  Totals          `json:"totals"`
	// Version is the compare-and-swap token of the stored copy. Zero means never persisted.
	Version int64 `json:"-"`
}

// LineItem is one product (optionally a variation) with quantity.
type LineItem struct {
	Key            string            `json:"key"`
	ProductID      int64             `json:"product_id"`
	VariationID    int64             `json:"variation_id,omitempty"`
	Quantity       int               `json:"quantity"`
	Variation      map[string]string `json:"variation,omitempty"`
	CustomData     map[string]string `json:"cart_item_data,omitempty"`
	Name           string            `json:"name"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	LineTotalCents int64             `json:"line_total_cents"`
}

// AppliedCoupon snapshots a coupon at the time it was applied.
type AppliedCoupon struct {
	Code   string `json:"code"`
	Type   string `json:"discount_type"`
	Amount int64  `json:"amount"`
}

// Totals are recomputed from line items and coupons on every read and mutation.
type Totals struct {
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
	ItemCount     int    `json:"item_count"`
	Currency      string `json:"currency"`
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Find returns the index of the line item with key, or -1.
func (c *Cart) Find(key string) int {
	for i, item := range c.Items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

// HasCoupon reports whether code is already applied.
func (c *Cart) HasCoupon(code string) bool {
	for _, cp := range c.Coupons {
		if cp.Code == code {
			return true
		}
	}
	return false
}
