// Package cart resolves the cart a request operates on and applies cart
// mutations to it.
package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/logging"
)

type cartRepo interface {
	GetSessionCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	SaveSessionCart(ctx context.Context, sessionID string, cart *domain.Cart) error
	GetCustomerCart(ctx context.Context, customerID int64, metaKey string) (*domain.Cart, error)
	SaveCustomerCart(ctx context.Context, customerID int64, metaKey string, cart *domain.Cart) error
}

type productRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type couponRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

type userResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.Customer, bool, error)
}

type recorder interface {
	CartOperation(operation string, err error)
}

// Deps are the collaborators of Service. Hooks and Metrics are optional.
type Deps struct {
	Carts    cartRepo
	Products productRepo
	Coupons  couponRepo
	Users    userResolver
	Hooks    *hooks.Registry
	Metrics  recorder
	Currency string
	Logger   *zap.Logger
}

type Service struct {
	carts    cartRepo
	products productRepo
	coupons  couponRepo
	users    userResolver
	hooks    *hooks.Registry
	metrics  recorder
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

func New(d Deps) *Service {
	currency := d.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		carts:    d.Carts,
		products: d.Products,
		coupons:  d.Coupons,
		users:    d.Users,
		hooks:    d.Hooks,
		metrics:  d.Metrics,
		currency: currency,
		now:      time.Now,
		logger:   logging.OrNop(d.Logger).Named("cart_service"),
	}
}

// Handle is a resolved cart together with the slot it is stored in.
type Handle struct {
	Owner domain.CartOwner
	Cart  *domain.Cart
}

// AddInput is a single product addition.
type AddInput struct {
	ProductID  int64
	Quantity   int
	Variation  map[string]string
	CustomData map[string]string
}

// Resolve returns the cart the identity operates on. A token that resolves to
// a customer selects that customer's stored cart, created empty and persisted
// on first access. Any other request uses the session cart.
func (s *Service) Resolve(ctx context.Context, id domain.Identity) (*Handle, error) {
	const op = "cart.resolve"
	if id.HasToken() {
		customer, ok, err := s.users.ResolveToken(ctx, id.TokenID)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.customerCart(ctx, customer.ID)
		}
		s.logger.Debug("token did not resolve, using session cart", zap.String("session_id", id.Session.ID))
	}
	if id.Session.ID == "" {
		return nil, domain.Internal(errors.New("missing session"), op, "session unavailable")
	}

	c, err := s.carts.GetSessionCart(ctx, id.Session.ID)
	if errors.Is(err, domain.ErrNotFound) {
		c, err = &domain.Cart{}, nil
	}
	if err != nil {
		return nil, domain.Internal(err, op, "load session cart")
	}
	cartops.Recalculate(c, s.currency)
	return &Handle{Owner: domain.CartOwner{SessionID: id.Session.ID}, Cart: c}, nil
}

func (s *Service) customerCart(ctx context.Context, customerID int64) (*Handle, error) {
	const op = "cart.resolve"
	owner := domain.CartOwner{CustomerID: customerID}
	c, err := s.carts.GetCustomerCart(ctx, customerID, domain.CartMetaKey)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c = &domain.Cart{}
		cartops.Recalculate(c, s.currency)
		h := &Handle{Owner: owner, Cart: c}
		if err := s.Save(ctx, h); err != nil {
			// a concurrent first access created it; read theirs
			if !domain.IsCode(err, domain.ECONFLICT) {
				return nil, err
			}
			return s.customerCart(ctx, customerID)
		}
		return h, nil
	case err != nil:
		return nil, domain.Internal(err, op, "load customer cart")
	}
	cartops.Recalculate(c, s.currency)
	return &Handle{Owner: owner, Cart: c}, nil
}

// Save persists the cart into its slot. A concurrent write since the cart was
// resolved yields a cart_conflict error.
func (s *Service) Save(ctx context.Context, h *Handle) error {
	const op = "cart.save"
	var err error
	if h.Owner.TokenBound() {
		err = s.carts.SaveCustomerCart(ctx, h.Owner.CustomerID, domain.CartMetaKey, h.Cart)
	} else {
		err = s.carts.SaveSessionCart(ctx, h.Owner.SessionID, h.Cart)
	}
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return domain.WrapError(err, domain.ECONFLICT, op, "The cart was changed by another request. Please retry.")
	case err != nil:
		return domain.Internal(err, op, "save cart")
	}
	return nil
}

// Get returns the current cart with freshly computed totals.
func (s *Service) Get(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	h, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.Cart, nil
}

// AddProduct adds one product (or variation) and persists the cart.
func (s *Service) AddProduct(ctx context.Context, id domain.Identity, in AddInput) (cart *domain.Cart, err error) {
	defer func() { s.record("add", err) }()
	if in.ProductID <= 0 {
		return nil, domain.Invalid("cart.add", "Invalid data, product_id is required.")
	}
	h, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.add(ctx, h.Cart, in); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, h); err != nil {
		return nil, err
	}
	return h.Cart, nil
}

// AddMany validates every entry before applying any of them, then applies
// them in order and persists once. A failing entry leaves the stored cart
// untouched.
func (s *Service) AddMany(ctx context.Context, id domain.Identity, entries []cartops.BulkEntry) (cart *domain.Cart, err error) {
	defer func() { s.record("add_many", err) }()
	if err := cartops.ValidateBulk(entries); err != nil {
		return nil, err
	}
	h, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.hooks.DoAction(ctx, hooks.PreMultipleCartItems, entries, h.Cart)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		key, err := s.add(ctx, h.Cart, AddInput{
			ProductID:  e.ProductID,
			Quantity:   e.Quantity,
			Variation:  e.Variation,
			CustomData: e.CustomData,
		})
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := s.Save(ctx, h); err != nil {
		return nil, err
	}
	s.hooks.DoAction(ctx, hooks.AfterMultipleCartItems, keys, h.Cart)
	return h.Cart, nil
}

// RemoveItem drops the line item with key and persists the cart.
func (s *Service) RemoveItem(ctx context.Context, id domain.Identity, key string) (cart *domain.Cart, err error) {
	defer func() { s.record("remove", err) }()
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Invalid("cart.remove", "Invalid data, item_key is required.")
	}
	h, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cartops.RemoveItem(h.Cart, key); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, h); err != nil {
		return nil, err
	}
	return h.Cart, nil
}

// ApplyCoupon validates code against the cart, applies it and persists the cart.
func (s *Service) ApplyCoupon(ctx context.Context, id domain.Identity, code string) (cart *domain.Cart, err error) {
	const op = "cart.apply_coupon"
	defer func() { s.record("coupon", err) }()
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.Invalid(op, "Invalid data, coupon is required.")
	}
	h, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	coupon, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		coupon, err = nil, nil
	}
	if err != nil {
		return nil, domain.Internal(err, op, "load coupon")
	}
	if err := cartops.ApplyCoupon(h.Cart, code, coupon, s.now()); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, h); err != nil {
		return nil, err
	}
	return h.Cart, nil
}

// Clear empties the cart and persists it.
func (s *Service) Clear(ctx context.Context, id domain.Identity) (cart *domain.Cart, err error) {
	defer func() { s.record("clear", err) }()
	h, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	cartops.Clear(h.Cart)
	if err := s.Save(ctx, h); err != nil {
		return nil, err
	}
	return h.Cart, nil
}

func (s *Service) add(ctx context.Context, c *domain.Cart, in AddInput) (string, error) {
	const op = "cart.add"
	p, err := s.product(ctx, in.ProductID)
	if err != nil {
		return "", err
	}
	add := cartops.Addition{
		Product:    *p,
		Quantity:   in.Quantity,
		Variation:  in.Variation,
		CustomData: in.CustomData,
	}
	if p.IsVariation() {
		parent, err := s.product(ctx, p.ParentID)
		if err != nil {
			return "", domain.Errorf(domain.EPRODUCT, op, "Invalid product: %d", in.ProductID)
		}
		add.Parent = parent
	}
	if add.Product.Currency == "" {
		add.Product.Currency = s.currency
	}
	return cartops.AddProduct(c, add)
}

func (s *Service) product(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.EPRODUCT, "cart.add", "Invalid product: %d", id)
	}
	if err != nil {
		return nil, domain.Internal(err, "cart.add", "load product")
	}
	return p, nil
}

func (s *Service) record(operation string, err error) {
	if s.metrics != nil {
		s.metrics.CartOperation(operation, err)
	}
}
