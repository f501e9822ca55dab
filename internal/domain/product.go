package domain

import "time"

const (
	ProductSimple    = "simple"
	ProductVariable  = "variable"
	ProductVariation = "variation"

	ProductPublished = "publish"
)

type Product struct {
	ID          int64             `json:"id"`
	ParentID    int64             `json:"parent_id,omitempty"`
	Type        string            `json:"type"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PriceCents  int64             `json:"price_cents"`
	Currency    string            `json:"currency"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Status      string            `json:"status"`
	Categories  []string          `json:"categories,omitempty"`
	Variations  []Product         `json:"variations,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IsVariation reports whether the product is a variation of a parent product.
func (p Product) IsVariation() bool {
	return p.Type == ProductVariation && p.ParentID != 0
}

// Purchasable reports whether the product can be put in a cart directly.
func (p Product) Purchasable() bool {
	return p.Status == ProductPublished && p.Type != ProductVariable
}
