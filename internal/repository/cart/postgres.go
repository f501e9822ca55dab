package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lean-commerce/internal/domain"
)

// sessionCartTTL is the expiry given to a session row created by a cart save.
const sessionCartTTL = 48 * time.Hour

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// storedCart is the persisted payload. Totals are derived and not stored.
type storedCart struct {
	Items   []domain.LineItem      `json:"items"`
	Coupons []domain.AppliedCoupon `json:"coupons"`
}

func (r *postgresRepo) GetSessionCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	const q = `
SELECT cart, cart_version
FROM sessions
WHERE id = $1 AND cart IS NOT NULL
`
	return fetchCart(r.pool.QueryRow(ctx, q, sessionID))
}

func (r *postgresRepo) SaveSessionCart(ctx context.Context, sessionID string, cart *domain.Cart) error {
	payload, err := encodeCart(cart)
	if err != nil {
		return err
	}
	var q string
	args := []any{sessionID, payload}
	if cart.Version == 0 {
		q = `
INSERT INTO sessions (id, cart, cart_version, expires_at)
VALUES ($1, $2, 1, $3)
ON CONFLICT (id) DO UPDATE
SET cart = EXCLUDED.cart,
    cart_version = sessions.cart_version + 1,
    updated_at = now()
WHERE sessions.cart_version = 0
RETURNING cart_version
`
		args = append(args, time.Now().Add(sessionCartTTL))
	} else {
		q = `
UPDATE sessions
SET cart = $2,
    cart_version = cart_version + 1,
    updated_at = now()
WHERE id = $1 AND cart_version = $3
RETURNING cart_version
`
		args = append(args, cart.Version)
	}
	return casVersion(r.pool.QueryRow(ctx, q, args...), cart)
}

func (r *postgresRepo) GetCustomerCart(ctx context.Context, customerID int64, metaKey string) (*domain.Cart, error) {
	const q = `
SELECT meta_value, version
FROM customer_meta
WHERE customer_id = $1 AND meta_key = $2
`
	return fetchCart(r.pool.QueryRow(ctx, q, customerID, metaKey))
}

func (r *postgresRepo) SaveCustomerCart(ctx context.Context, customerID int64, metaKey string, cart *domain.Cart) error {
	payload, err := encodeCart(cart)
	if err != nil {
		return err
	}
	if cart.Version == 0 {
		const q = `
INSERT INTO customer_meta (customer_id, meta_key, meta_value, version)
VALUES ($1, $2, $3, 1)
ON CONFLICT (customer_id, meta_key) DO NOTHING
RETURNING version
`
		return casVersion(r.pool.QueryRow(ctx, q, customerID, metaKey, payload), cart)
	}
	const q = `
UPDATE customer_meta
SET meta_value = $3,
    version = version + 1,
    updated_at = now()
WHERE customer_id = $1 AND meta_key = $2 AND version = $4
RETURNING version
`
	return casVersion(r.pool.QueryRow(ctx, q, customerID, metaKey, payload, cart.Version), cart)
}

func fetchCart(row pgx.Row) (*domain.Cart, error) {
	var payload []byte
	var version int64
	if err := row.Scan(&payload, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var stored storedCart
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &domain.Cart{
		Items:   stored.Items,
		Coupons: stored.Coupons,
		Version: version,
	}, nil
}

func encodeCart(cart *domain.Cart) ([]byte, error) {
	if cart == nil {
		return nil, errors.New("nil cart")
	}
	payload, err := json.Marshal(storedCart{Items: cart.Items, Coupons: cart.Coupons})
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return payload, nil
}

func casVersion(row pgx.Row, cart *domain.Cart) error {
	var version int64
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVersionConflict
		}
		return err
	}
	cart.Version = version
	return nil
}
