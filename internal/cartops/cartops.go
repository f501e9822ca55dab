// Package cartops holds the cart mutations and totals computation. Functions
// here never touch storage; callers load the referenced products and coupons.
package cartops

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lean-commerce/internal/domain"
)

// MaxQuantity caps the quantity of a single line item.
const MaxQuantity = 10000

var itemKeyNamespace = uuid.MustParse("6f1c7a52-3b0e-4d1a-9a55-2f7c2d4be1a0")

// Addition describes one product to put into a cart.
type Addition struct {
	// Product is the product product_id refers to. It may be a variation.
	Product domain.Product
	// Parent is required when Product is a variation.
	Parent     *domain.Product
	Quantity   int
	Variation  map[string]string
	CustomData map[string]string
}

// BulkEntry is one element of a bulk add request.
type BulkEntry struct {
	ProductID  int64
	Quantity   int
	Variation  map[string]string
	CustomData map[string]string
}

// ItemKey derives the stable line item key from product, variation and custom data.
func ItemKey(productID, variationID int64, variation, customData map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|", productID, variationID)
	writeSorted(&b, variation)
	b.WriteByte('|')
	writeSorted(&b, customData)
	return uuid.NewSHA1(itemKeyNamespace, []byte(b.String())).String()
}

func writeSorted(b *strings.Builder, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%q=%q;", k, m[k])
	}
}

// AddProduct adds the product to the cart and returns the item key. An existing
// line with the same key has its quantity increased.
func AddProduct(cart *domain.Cart, add Addition) (string, error) {
	const op = "cartops.add_product"
	p := add.Product
	if !p.Purchasable() {
		return "", domain.Errorf(domain.EPRODUCT, op, "Invalid product: %d", p.ID)
	}
	qty := add.Quantity
	if qty < 1 {
		qty = 1
	}
	if qty > MaxQuantity {
		return "", domain.Errorf(domain.EREQUEST, op, "Quantity must not exceed %d.", MaxQuantity)
	}

	productID, variationID := p.ID, int64(0)
	var variation map[string]string
	name := p.Name
	if p.IsVariation() {
		if add.Parent == nil || add.Parent.ID != p.ParentID {
			return "", domain.Errorf(domain.EPRODUCT, op, "Invalid product: %d", p.ID)
		}
		productID, variationID = add.Parent.ID, p.ID
		variation = mergeAttributes(p.Attributes, add.Variation)
		if name == "" {
			name = add.Parent.Name
		}
	}
	custom := copyMap(add.CustomData)

	key := ItemKey(productID, variationID, variation, custom)
	if idx := cart.Find(key); idx >= 0 {
		if cart.Items[idx].Quantity > MaxQuantity-qty {
			return "", domain.Errorf(domain.EREQUEST, op, "Quantity must not exceed %d.", MaxQuantity)
		}
		cart.Items[idx].Quantity += qty
	} else {
		cart.Items = append(cart.Items, domain.LineItem{
			Key:            key,
			ProductID:      productID,
			VariationID:    variationID,
			Quantity:       qty,
			Variation:      variation,
			CustomData:     custom,
			Name:           name,
			UnitPriceCents: p.PriceCents,
		})
	}
	Recalculate(cart, p.Currency)
	return key, nil
}

// RemoveItem drops the line item matching key exactly.
func RemoveItem(cart *domain.Cart, key string) error {
	idx := cart.Find(key)
	if idx < 0 {
		return domain.Errorf(domain.EITEM, "cartops.remove_item", "Cart item not found: %s", key)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	Recalculate(cart, cart.Totals.Currency)
	return nil
}

// ApplyCoupon validates coupon against the cart and applies it. A nil coupon
// means code did not resolve.
func ApplyCoupon(cart *domain.Cart, code string, coupon *domain.Coupon, now time.Time) error {
	const op = "cartops.apply_coupon"
	if coupon == nil {
		return domain.Errorf(domain.ECOUPON, op, "Coupon %q does not exist!", code)
	}
	if !coupon.Active {
		return domain.Errorf(domain.ECOUPON, op, "Coupon %q is not active.", coupon.Code)
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return domain.Errorf(domain.ECOUPON, op, "Coupon %q has expired.", coupon.Code)
	}
	if coupon.UsageLimit > 0 && coupon.UsageCount >= coupon.UsageLimit {
		return domain.Errorf(domain.ECOUPON, op, "Coupon usage limit has been reached.")
	}
	if cart.HasCoupon(coupon.Code) {
		return domain.Errorf(domain.ECOUPON, op, "Coupon code already applied!")
	}
	Recalculate(cart, cart.Totals.Currency)
	if coupon.MinimumCents > 0 && cart.Totals.SubtotalCents < coupon.MinimumCents {
		return domain.Errorf(domain.ECOUPON, op, "The minimum spend for this coupon is %s.", FormatCents(coupon.MinimumCents))
	}
	switch coupon.DiscountType {
	case domain.CouponPercent, domain.CouponFixedCart:
	default:
		return domain.Errorf(domain.ECOUPON, op, "Coupon %q has an unsupported discount type.", coupon.Code)
	}
	cart.Coupons = append(cart.Coupons, domain.AppliedCoupon{
		Code:   coupon.Code,
		Type:   coupon.DiscountType,
		Amount: coupon.Amount,
	})
	Recalculate(cart, cart.Totals.Currency)
	return nil
}

// Clear removes all line items and coupons.
func Clear(cart *domain.Cart) {
	cart.Items = nil
	cart.Coupons = nil
	Recalculate(cart, cart.Totals.Currency)
}

// ValidateBulk checks every entry before any of them is applied.
func ValidateBulk(entries []BulkEntry) error {
	const op = "cartops.validate_bulk"
	if len(entries) == 0 {
		return domain.Invalid(op, "Invalid data, array of objects expected.")
	}
	for _, e := range entries {
		if e.ProductID <= 0 {
			return domain.Invalid(op, "Invalid data, all objects in array must have at least a product_id.")
		}
		if e.Quantity > MaxQuantity {
			return domain.Errorf(domain.EREQUEST, op, "Quantity must not exceed %d.", MaxQuantity)
		}
	}
	return nil
}

// Recalculate refreshes line totals and cart totals from unit prices,
// quantities and coupons.
func Recalculate(cart *domain.Cart, currency string) {
	RepriceLines(cart.Items)
	if currency == "" {
		currency = cart.Totals.Currency
	}
	cart.Totals = ComputeTotals(cart.Items, cart.Coupons, currency)
}

// RepriceLines sets each line total to unit price times quantity.
func RepriceLines(items []domain.LineItem) {
	for i := range items {
		items[i].LineTotalCents = items[i].UnitPriceCents * int64(items[i].Quantity)
	}
}

// ComputeTotals derives totals without trusting stored line totals.
func ComputeTotals(items []domain.LineItem, coupons []domain.AppliedCoupon, currency string) domain.Totals {
	var subtotal int64
	var count int
	for _, item := range items {
		subtotal += item.UnitPriceCents * int64(item.Quantity)
		count += item.Quantity
	}
	var discount int64
	for _, c := range coupons {
		discount += couponDiscount(c, subtotal)
	}
	if discount > subtotal {
		discount = subtotal
	}
	return domain.Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		ItemCount:     count,
		Currency:      currency,
	}
}

func couponDiscount(c domain.AppliedCoupon, subtotal int64) int64 {
	switch c.Type {
	case domain.CouponPercent:
		return decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(c.Amount)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case domain.CouponFixedCart:
		return c.Amount
	default:
		return 0
	}
}

// FormatCents renders cents as a fixed two-decimal amount.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func mergeAttributes(base, requested map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(requested))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range requested {
		// a variation's own non-empty attribute wins over the request ("any" attributes are empty)
		if existing, ok := out[k]; ok && existing != "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func copyMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
