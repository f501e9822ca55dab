package coupon

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lean-commerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Normalize returns the stored form of a coupon code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	const q = `
SELECT code, discount_type, amount, minimum_cents, usage_limit, usage_count, expires_at, active
FROM coupons
WHERE code = $1
`
	var c domain.Coupon
	err := r.pool.QueryRow(ctx, q, Normalize(code)).Scan(
		&c.Code, &c.DiscountType, &c.Amount, &c.MinimumCents, &c.UsageLimit, &c.UsageCount, &c.ExpiresAt, &c.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) IncrementUsage(ctx context.Context, code string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE coupons SET usage_count = usage_count + 1 WHERE code = $1`, Normalize(code))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Coupon) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO coupons (code, discount_type, amount, minimum_cents, usage_limit, expires_at, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (code) DO UPDATE SET
    discount_type = EXCLUDED.discount_type,
    amount = EXCLUDED.amount,
    minimum_cents = EXCLUDED.minimum_cents,
    usage_limit = EXCLUDED.usage_limit,
    expires_at = EXCLUDED.expires_at,
    active = EXCLUDED.active
`, Normalize(c.Code), c.DiscountType, c.Amount, c.MinimumCents, c.UsageLimit, c.ExpiresAt, c.Active)
	return err
}
