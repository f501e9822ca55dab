package domain

// Gateway is the stored configuration of a payment gateway. Position is the
// configuration order used to pick the active gateway.
type Gateway struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Enabled  bool              `json:"enabled"`
	Position int               `json:"position"`
	Settings map[string]string `json:"settings,omitempty"`
}

// PaymentResult is returned by a gateway after processing an order.
type PaymentResult struct {
	Result        string `json:"result"`
	OrderID       int64  `json:"order_id"`
	Status        string `json:"status"`
	Gateway       string `json:"gateway"`
	TransactionID string `json:"transaction_id,omitempty"`
	ClientSecret  string `json:"client_secret,omitempty"`
	Redirect      string `json:"redirect,omitempty"`
	State         string `json:"state"`
}

// CheckoutFields lists the address fields required by the checkout configuration.
type CheckoutFields struct {
	Billing  []string
	Shipping []string
}
