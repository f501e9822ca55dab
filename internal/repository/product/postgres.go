package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
)

const defaultListLimit = 20

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("product_repo")}
}

const productColumns = `
p.id, COALESCE(p.parent_id, 0), p.type, p.sku, p.name, COALESCE(p.description, ''),
p.price_cents, p.currency, p.attributes, p.status, p.created_at,
COALESCE((SELECT array_agg(c.slug ORDER BY c.slug)
          FROM product_categories pc JOIN categories c ON c.id = pc.category_id
          WHERE pc.product_id = p.id), '{}')`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.ParentID, &p.Type, &p.SKU, &p.Name, &p.Description,
		&p.PriceCents, &p.Currency, &p.Attributes, &p.Status, &p.CreatedAt, &p.Categories)
	return p, err
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("product not found", zap.Int64("id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get product", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := `SELECT ` + productColumns + `
FROM products p
WHERE p.parent_id IS NULL
  AND p.status = 'publish'
  AND ($1 = '' OR EXISTS (
        SELECT 1 FROM product_categories pc JOIN categories c ON c.id = pc.category_id
        WHERE pc.product_id = p.id AND c.slug = $1))
ORDER BY p.created_at DESC, p.id DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.pool.Query(ctx, q, filter.CategorySlug, limit, filter.Offset)
	if err != nil {
		r.logger.Error("list products", zap.Error(err))
		return nil, err
	}
	products, err := collect(rows)
	if err != nil {
		return nil, err
	}

	var parents []int64
	index := make(map[int64]int)
	for i, p := range products {
		if p.Type == domain.ProductVariable {
			parents = append(parents, p.ID)
			index[p.ID] = i
		}
	}
	if len(parents) > 0 {
		vq := `SELECT ` + productColumns + `
FROM products p
WHERE p.parent_id = ANY($1) AND p.status = 'publish'
ORDER BY p.parent_id, p.id
`
		vrows, err := r.pool.Query(ctx, vq, parents)
		if err != nil {
			return nil, err
		}
		variations, err := collect(vrows)
		if err != nil {
			return nil, err
		}
		for _, v := range variations {
			i := index[v.ParentID]
			products[i].Variations = append(products[i].Variations, v)
		}
	}
	r.logger.Debug("listed products", zap.String("category", filter.CategorySlug), zap.Int("count", len(products)))
	return products, nil
}

func collect(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (parent_id, type, sku, name, description, price_cents, currency, attributes, status)
VALUES (NULLIF($1::bigint, 0), $2, $3, $4, NULLIF($5, ''), $6, $7, COALESCE($8, '{}'::jsonb), $9)
ON CONFLICT (sku) DO UPDATE SET
    parent_id = EXCLUDED.parent_id,
    type = EXCLUDED.type,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    attributes = EXCLUDED.attributes,
    status = EXCLUDED.status
RETURNING id, created_at
`
	if product.Type == "" {
		product.Type = domain.ProductSimple
	}
	if product.Status == "" {
		product.Status = domain.ProductPublished
	}
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.ParentID,
		product.Type,
		product.SKU,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.Attributes,
		product.Status,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("upsert product", zap.String("sku", product.SKU), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted product", zap.String("sku", res.SKU), zap.Int64("id", res.ID))
	return &res, nil
}

func (r *postgresRepo) SetCategories(ctx context.Context, productID int64, slugs []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return err
	}
	if len(slugs) > 0 {
		if _, err := tx.Exec(ctx, `
INSERT INTO product_categories (product_id, category_id)
SELECT $1, id FROM categories WHERE slug = ANY($2)
ON CONFLICT DO NOTHING
`, productID, slugs); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
