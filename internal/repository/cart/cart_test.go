package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/testutil"
)

func TestPostgres_SessionCartVersioning(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	repo := NewPostgres(pool)

	_, err := repo.GetSessionCart(ctx, "sess-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cart := &domain.Cart{Items: []domain.LineItem{{Key: "k1", ProductID: 1, Quantity: 2, UnitPriceCents: 100}}}
	require.NoError(t, repo.SaveSessionCart(ctx, "sess-a", cart))
	assert.Equal(t, int64(1), cart.Version)

	loaded, err := repo.GetSessionCart(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, loaded.Items)
	assert.Equal(t, int64(1), loaded.Version)

	stale := &domain.Cart{Version: 1}
	require.NoError(t, repo.SaveSessionCart(ctx, "sess-a", loaded))
	assert.ErrorIs(t, repo.SaveSessionCart(ctx, "sess-a", stale), domain.ErrVersionConflict)

	fresh := &domain.Cart{}
	assert.ErrorIs(t, repo.SaveSessionCart(ctx, "sess-a", fresh), domain.ErrVersionConflict)
}

func TestPostgres_CustomerCartIsolation(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	repo := NewPostgres(pool)
	alice := testutil.InsertCustomer(t, pool, "alice@example.com")
	bob := testutil.InsertCustomer(t, pool, "bob@example.com")

	aliceCart := &domain.Cart{Items: []domain.LineItem{{Key: "a", ProductID: 1, Quantity: 1}}}
	require.NoError(t, repo.SaveCustomerCart(ctx, alice, domain.CartMetaKey, aliceCart))
	bobCart := &domain.Cart{}
	require.NoError(t, repo.SaveCustomerCart(ctx, bob, domain.CartMetaKey, bobCart))

	loadedBob, err := repo.GetCustomerCart(ctx, bob, domain.CartMetaKey)
	require.NoError(t, err)
	assert.Empty(t, loadedBob.Items)

	loadedAlice, err := repo.GetCustomerCart(ctx, alice, domain.CartMetaKey)
	require.NoError(t, err)
	assert.Len(t, loadedAlice.Items, 1)

	dup := &domain.Cart{}
	assert.ErrorIs(t, repo.SaveCustomerCart(ctx, alice, domain.CartMetaKey, dup), domain.ErrVersionConflict)
}
