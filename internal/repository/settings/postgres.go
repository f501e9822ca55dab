package settings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lean-commerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) CheckoutFields(ctx context.Context) (domain.CheckoutFields, error) {
	rows, err := r.pool.Query(ctx, `
SELECT side, field_key
FROM checkout_fields
WHERE required
ORDER BY side, position, field_key
`)
	if err != nil {
		return domain.CheckoutFields{}, err
	}
	defer rows.Close()

	var out domain.CheckoutFields
	for rows.Next() {
		var side, key string
		if err := rows.Scan(&side, &key); err != nil {
			return domain.CheckoutFields{}, err
		}
		switch side {
		case SideBilling:
			out.Billing = append(out.Billing, key)
		case SideShipping:
			out.Shipping = append(out.Shipping, key)
		}
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpsertField(ctx context.Context, f Field) error {
	if f.Side != SideBilling && f.Side != SideShipping {
		return fmt.Errorf("unknown checkout field side %q", f.Side)
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO checkout_fields (side, field_key, label, required, position)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (side, field_key) DO UPDATE SET
    label = EXCLUDED.label,
    required = EXCLUDED.required,
    position = EXCLUDED.position
`, f.Side, f.Key, f.Label, f.Required, f.Position)
	return err
}
