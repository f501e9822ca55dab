package domain

import "time"

const (
	CouponPercent   = "percent"
	CouponFixedCart = "fixed_cart"
)

// Coupon is a discount definition. Amount is a whole percentage for percent
// coupons and cents for fixed_cart coupons.
type Coupon struct {
	Code         string     `json:"code"`
	DiscountType string     `json:"discount_type"`
	Amount       int64      `json:"amount"`
	MinimumCents int64      `json:"minimum_cents"`
	UsageLimit   int        `json:"usage_limit"`
	UsageCount   int        `json:"usage_count"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Active       bool       `json:"active"`
}
