// Package seed loads demo data for manual testing. Every step upserts, so
// Apply can run repeatedly.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
	"lean-commerce/internal/repository/settings"
	customersvc "lean-commerce/internal/service/customer"
)

const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "DemoPass123"
)

type productWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetCategories(ctx context.Context, productID int64, slugs []string) error
}

type categoryEnsurer interface {
	Ensure(ctx context.Context, names []string) ([]domain.Category, error)
}

type couponWriter interface {
	Upsert(ctx context.Context, c domain.Coupon) error
}

type gatewayWriter interface {
	Upsert(ctx context.Context, g domain.Gateway) error
}

type fieldWriter interface {
	UpsertField(ctx context.Context, f settings.Field) error
}

type customerSeeder interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, string, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, error)
}

type Stores struct {
	Products   productWriter
	Categories categoryEnsurer
	Coupons    couponWriter
	Gateways   gatewayWriter
	Fields     fieldWriter
	Customers  customerSeeder
}

// Result reports what a seed run produced.
type Result struct {
	Products   int
	CustomerID int64
	TokenID    string
}

type productSeed struct {
	SKU        string
	Name       string
	PriceCents int64
	Categories []string
	Variations []variationSeed
}

type variationSeed struct {
	SKU        string
	PriceCents int64
	Attributes map[string]string
}

var products = []productSeed{
	{SKU: "DEMO-MUG", Name: "Demo Mug", PriceCents: 1299, Categories: []string{"Mugs", "Kitchen"}},
	{SKU: "DEMO-STICKER", Name: "Demo Sticker", PriceCents: 299, Categories: []string{"Accessories"}},
	{
		SKU:        "DEMO-TEE",
		Name:       "Demo T-Shirt",
		Categories: []string{"Clothing"},
		Variations: []variationSeed{
			{SKU: "DEMO-TEE-RED-M", PriceCents: 1999, Attributes: map[string]string{"color": "red", "size": "M"}},
			{SKU: "DEMO-TEE-BLUE-L", PriceCents: 2199, Attributes: map[string]string{"color": "blue", "size": "L"}},
		},
	},
}

var gateways = []domain.Gateway{
	{ID: "bacs", Title: "Direct bank transfer", Enabled: true, Position: 0},
	{ID: "cheque", Title: "Check payments", Enabled: false, Position: 1},
	{ID: "cod", Title: "Cash on delivery", Enabled: true, Position: 2},
	{ID: "stripe", Title: "Credit card (Stripe)", Enabled: false, Position: 3},
}

var requiredFields = map[string][]string{
	settings.SideBilling:  {"first_name", "last_name", "address_1", "city", "postcode", "country", "email"},
	settings.SideShipping: {"first_name", "last_name", "address_1", "city", "postcode", "country"},
}

// Apply inserts the demo catalog, coupons, gateways, checkout fields and demo customer.
func Apply(ctx context.Context, s Stores, currency string, logger *zap.Logger) (*Result, error) {
	logger = logging.OrNop(logger).Named("seed")
	res := &Result{}

	for _, p := range products {
		n, err := seedProduct(ctx, s, currency, p)
		if err != nil {
			return nil, fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
		res.Products += n
	}

	expired := time.Now().Add(-24 * time.Hour)
	coupons := []domain.Coupon{
		{Code: "save10", DiscountType: domain.CouponPercent, Amount: 10, Active: true},
		{Code: "fiver", DiscountType: domain.CouponFixedCart, Amount: 500, MinimumCents: 2000, Active: true},
		{Code: "oneuse", DiscountType: domain.CouponFixedCart, Amount: 100, UsageLimit: 1, Active: true},
		{Code: "expired", DiscountType: domain.CouponPercent, Amount: 50, ExpiresAt: &expired, Active: true},
	}
	for _, c := range coupons {
		if err := s.Coupons.Upsert(ctx, c); err != nil {
			return nil, fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}

	for _, g := range gateways {
		if err := s.Gateways.Upsert(ctx, g); err != nil {
			return nil, fmt.Errorf("seed gateway %s: %w", g.ID, err)
		}
	}

	for _, side := range []string{settings.SideBilling, settings.SideShipping} {
		for pos, key := range requiredFields[side] {
			f := settings.Field{Side: side, Key: key, Required: true, Position: pos}
			if err := s.Fields.UpsertField(ctx, f); err != nil {
				return nil, fmt.Errorf("seed checkout field %s.%s: %w", side, key, err)
			}
		}
	}

	customer, token, err := demoCustomer(ctx, s.Customers)
	if err != nil {
		return nil, fmt.Errorf("seed demo customer: %w", err)
	}
	res.CustomerID, res.TokenID = customer.ID, token

	logger.Info("seed applied",
		zap.Int("products", res.Products),
		zap.Int("coupons", len(coupons)),
		zap.Int("gateways", len(gateways)),
		zap.Int64("customer_id", res.CustomerID),
	)
	return res, nil
}

func seedProduct(ctx context.Context, s Stores, currency string, p productSeed) (int, error) {
	parent := domain.Product{
		Type:       domain.ProductSimple,
		SKU:        p.SKU,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Currency:   currency,
	}
	if len(p.Variations) > 0 {
		parent.Type = domain.ProductVariable
	}
	saved, err := s.Products.Upsert(ctx, parent)
	if err != nil {
		return 0, err
	}

	cats, err := s.Categories.Ensure(ctx, p.Categories)
	if err != nil {
		return 0, err
	}
	slugs := make([]string, 0, len(cats))
	for _, c := range cats {
		slugs = append(slugs, c.Slug)
	}
	if err := s.Products.SetCategories(ctx, saved.ID, slugs); err != nil {
		return 0, err
	}

	for _, v := range p.Variations {
		_, err := s.Products.Upsert(ctx, domain.Product{
			ParentID:   saved.ID,
			Type:       domain.ProductVariation,
			SKU:        v.SKU,
			Name:       p.Name,
			PriceCents: v.PriceCents,
			Currency:   currency,
			Attributes: v.Attributes,
		})
		if err != nil {
			return 0, err
		}
	}
	return 1 + len(p.Variations), nil
}

// demoCustomer registers the demo account, or logs in when it already exists.
func demoCustomer(ctx context.Context, customers customerSeeder) (*domain.Customer, string, error) {
	c, token, err := customers.Signup(ctx, customersvc.SignupInput{
		Email:     DemoEmail,
		Password:  DemoPassword,
		FirstName: "Demo",
		LastName:  "Customer",
	})
	if domain.IsCode(err, domain.EALREADYEXISTS) {
		return customers.Login(ctx, DemoEmail, DemoPassword)
	}
	return c, token, err
}
