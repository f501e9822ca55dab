package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/testutil"
)

func TestPostgres_UpsertListAndGet(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	repo := NewPostgres(pool, nil)

	if _, err := pool.Exec(ctx, `INSERT INTO categories (slug, name) VALUES ('mugs', 'Mugs')`); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	mug, err := repo.Upsert(ctx, domain.Product{SKU: "MUG", Name: "Mug", PriceCents: 1299, Currency: "USD"})
	require.NoError(t, err)
	require.NoError(t, repo.SetCategories(ctx, mug.ID, []string{"mugs", "unknown"}))

	shirt, err := repo.Upsert(ctx, domain.Product{SKU: "SHIRT", Name: "Shirt", Type: domain.ProductVariable, Currency: "USD"})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.Product{
		SKU: "SHIRT-L", Name: "Shirt - L", Type: domain.ProductVariation, ParentID: shirt.ID,
		PriceCents: 1999, Currency: "USD", Attributes: map[string]string{"size": "L"},
	})
	require.NoError(t, err)

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2, "variations are nested, not listed")
	var variable domain.Product
	for _, p := range all {
		if p.ID == shirt.ID {
			variable = p
		}
	}
	require.Len(t, variable.Variations, 1)
	assert.Equal(t, "L", variable.Variations[0].Attributes["size"])

	mugs, err := repo.List(ctx, ListFilter{CategorySlug: "mugs"})
	require.NoError(t, err)
	require.Len(t, mugs, 1)
	assert.Equal(t, []string{"mugs"}, mugs[0].Categories)

	again, err := repo.Upsert(ctx, domain.Product{SKU: "MUG", Name: "Big Mug", PriceCents: 1499, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, mug.ID, again.ID)

	got, err := repo.GetByID(ctx, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", got.Name)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
