package domain

import "time"

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderOnHold     = "on-hold"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
	OrderRefunded   = "refunded"
	OrderFailed     = "failed"
)

// DefaultOrderStatuses are the statuses listed by the order query unless filtered.
var DefaultOrderStatuses = []string{
	OrderPending,
	OrderProcessing,
	OrderOnHold,
	OrderCompleted,
	OrderCancelled,
	OrderRefunded,
	OrderFailed,
}

// Address is a free-form set of address fields keyed by checkout field name
// (first_name, address_1, city, postcode, ...).
type Address map[string]string

type Order struct {
	ID            int64           `json:"id"`
	OrderKey      string          `json:"order_key"`
	CustomerID    int64           `json:"customer_id"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Items         []LineItem      `json:"line_items"`
	Coupons       []AppliedCoupon `json:"coupon_lines"`
	SubtotalCents int64           `json:"subtotal_cents"`
	DiscountCents int64           `json:"discount_cents"`
	TotalCents    int64           `json:"total_cents"`
	Billing       Address         `json:"billing"`
	Shipping      Address         `json:"shipping"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CustomerNote  string          `json:"customer_note,omitempty"`
	CreatedAt     time.Time       `json:"date_created"`
	UpdatedAt     time.Time       `json:"date_modified"`
}

// NeedsPayment reports whether the order can still be paid for.
func (o *Order) NeedsPayment() bool {
	return o.Status == OrderPending || o.Status == OrderFailed
}
