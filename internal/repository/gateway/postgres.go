package gateway

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"lean-commerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Gateway, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, title, enabled, position, settings
FROM payment_gateways
ORDER BY position ASC, id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Gateway
	for rows.Next() {
		var g domain.Gateway
		if err := rows.Scan(&g.ID, &g.Title, &g.Enabled, &g.Position, &g.Settings); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Upsert(ctx context.Context, g domain.Gateway) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO payment_gateways (id, title, enabled, position, settings)
VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::jsonb))
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    enabled = EXCLUDED.enabled,
    position = EXCLUDED.position,
    settings = EXCLUDED.settings
`, g.ID, g.Title, g.Enabled, g.Position, g.Settings)
	return err
}
