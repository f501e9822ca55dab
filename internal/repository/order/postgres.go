package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("order_repo")}
}

const orderColumns = `id, order_key, customer_id, status, currency, subtotal_cents, discount_cents, total_cents,
billing, shipping, payment_method, transaction_id, customer_note, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	const q = `
INSERT INTO orders (order_key, customer_id, status, currency, subtotal_cents, discount_cents, total_cents,
                    billing, shipping, payment_method, customer_note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns
	created, err := scanOrder(tx.QueryRow(ctx, q,
		o.OrderKey,
		o.CustomerID,
		o.Status,
		o.Currency,
		o.SubtotalCents,
		o.DiscountCents,
		o.TotalCents,
		addressOrEmpty(o.Billing),
		addressOrEmpty(o.Shipping),
		o.PaymentMethod,
		o.CustomerNote,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
INSERT INTO order_items (order_id, position, item_key, product_id, variation_id, name, quantity,
                         unit_price_cents, line_total_cents, variation, custom_data)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, created.ID, i, it.Key, it.ProductID, it.VariationID, it.Name, it.Quantity,
			it.UnitPriceCents, it.LineTotalCents, mapOrEmpty(it.Variation), mapOrEmpty(it.CustomData))
	}
	for _, c := range o.Coupons {
		batch.Queue(`
INSERT INTO order_coupons (order_id, code, discount_type, amount)
VALUES ($1, $2, $3, $4)
`, created.ID, c.Code, c.Type, c.Amount)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("insert order lines: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	created.Items = append([]domain.LineItem(nil), o.Items...)
	created.Coupons = append([]domain.AppliedCoupon(nil), o.Coupons...)
	r.logger.Debug("order created",
		zap.Int64("order_id", created.ID),
		zap.Int("items", len(created.Items)),
	)
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID int64, statuses []string, limit int) ([]domain.Order, error) {
	if len(statuses) == 0 {
		return []domain.Order{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE customer_id = $1 AND status = ANY($2)
ORDER BY created_at DESC, id DESC
LIMIT $3
`, customerID, statuses, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, ptrs); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

func (r *postgresRepo) SetAddresses(ctx context.Context, id int64, billing, shipping domain.Address) error {
	return r.exec(ctx, `
UPDATE orders SET billing = $2, shipping = $3, updated_at = now() WHERE id = $1
`, id, addressOrEmpty(billing), addressOrEmpty(shipping))
}

func (r *postgresRepo) UpdateTotals(ctx context.Context, id int64, subtotal, discount, total int64) error {
	return r.exec(ctx, `
UPDATE orders
SET subtotal_cents = $2, discount_cents = $3, total_cents = $4, updated_at = now()
WHERE id = $1
`, id, subtotal, discount, total)
}

func (r *postgresRepo) UpdatePayment(ctx context.Context, id int64, status, method, transactionID string) error {
	return r.exec(ctx, `
UPDATE orders
SET status = $2, payment_method = $3, transaction_id = $4, updated_at = now()
WHERE id = $1
`, id, status, method, transactionID)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) exec(ctx context.Context, q string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) loadLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		o.Items = []domain.LineItem{}
		o.Coupons = []domain.AppliedCoupon{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.pool.Query(ctx, `
SELECT order_id, item_key, product_id, variation_id, name, quantity, unit_price_cents, line_total_cents,
       variation, custom_data
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, position
`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var orderID int64
		var it domain.LineItem
		if err := rows.Scan(&orderID, &it.Key, &it.ProductID, &it.VariationID, &it.Name, &it.Quantity,
			&it.UnitPriceCents, &it.LineTotalCents, &it.Variation, &it.CustomData); err != nil {
			rows.Close()
			return err
		}
		byID[orderID].Items = append(byID[orderID].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
SELECT order_id, code, discount_type, amount
FROM order_coupons
WHERE order_id = ANY($1)
ORDER BY order_id, code
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID int64
		var c domain.AppliedCoupon
		if err := rows.Scan(&orderID, &c.Code, &c.Type, &c.Amount); err != nil {
			return err
		}
		byID[orderID].Coupons = append(byID[orderID].Coupons, c)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderKey,
		&o.CustomerID,
		&o.Status,
		&o.Currency,
		&o.SubtotalCents,
		&o.DiscountCents,
		&o.TotalCents,
		&o.Billing,
		&o.Shipping,
		&o.PaymentMethod,
		&o.TransactionID,
		&o.CustomerNote,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func addressOrEmpty(a domain.Address) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return a
}

func mapOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
