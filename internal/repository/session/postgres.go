package session

import (
	"context"
	"errors"
	"time"

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

func (r *postgresRepo) Touch(ctx context.Context, id string, ttl time.Duration) (*domain.Session, error) {
	const q = `
UPDATE sessions
SET expires_at = $2,
    updated_at = now()
WHERE id = $1
RETURNING id, COALESCE(customer_id, 0)
`
	var s domain.Session
	err := r.pool.QueryRow(ctx, q, id, time.Now().Add(ttl)).Scan(&s.ID, &s.CustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) Ensure(ctx context.Context, id string, ttl time.Duration) (*domain.Session, error) {
	if id == "" {
		return nil, errors.New("session id required")
	}
	const q = `
INSERT INTO sessions (id, expires_at)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE
SET expires_at = EXCLUDED.expires_at,
    updated_at = now()
RETURNING id, COALESCE(customer_id, 0)
`
	var s domain.Session
	if err := r.pool.QueryRow(ctx, q, id, time.Now().Add(ttl)).Scan(&s.ID, &s.CustomerID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) SetCustomer(ctx context.Context, id string, customerID int64) error {
	var customer *int64
	if customerID != 0 {
		customer = &customerID
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE sessions
SET customer_id = $2, updated_at = now()
WHERE id = $1
`, id, customer)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
