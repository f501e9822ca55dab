package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
	productrepo "lean-commerce/internal/repository/product"
)

type stubRepo struct {
	lastFilter productrepo.ListFilter
	products   []domain.Product
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, f productrepo.ListFilter) ([]domain.Product, error) {
	s.lastFilter = f
	return s.products, nil
}

func (s *stubRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func (s *stubRepo) SetCategories(context.Context, int64, []string) error { return nil }

type stubCategories map[string]bool

func (s stubCategories) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	if !s[slug] {
		return nil, domain.ErrNotFound
	}
	return &domain.Category{Slug: slug}, nil
}

func TestList_Pagination(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, stubCategories{"mugs": true})
	ctx := context.Background()

	got, err := svc.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, productrepo.ListFilter{Limit: 20}, repo.lastFilter)

	_, err = svc.List(ctx, ListInput{Category: " Mugs ", Page: 3, PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, productrepo.ListFilter{CategorySlug: "mugs", Limit: 100, Offset: 200}, repo.lastFilter)
}

func TestList_UnknownCategory(t *testing.T) {
	svc := New(&stubRepo{}, stubCategories{})
	_, err := svc.List(context.Background(), ListInput{Category: "ghosts"})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestGet(t *testing.T) {
	svc := New(&stubRepo{products: []domain.Product{{ID: 4, Name: "Mug"}}}, stubCategories{})
	p, err := svc.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)

	_, err = svc.Get(context.Background(), 5)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
