package category

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
)

type memoryRepo struct {
	bySlug map[string]domain.Category
}

func (m *memoryRepo) List(context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range m.bySlug {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	c, ok := m.bySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *memoryRepo) Upsert(_ context.Context, c domain.Category) (*domain.Category, error) {
	if existing, ok := m.bySlug[c.Slug]; ok {
		c.ID = existing.ID
	} else {
		c.ID = int64(len(m.bySlug) + 1)
	}
	m.bySlug[c.Slug] = c
	return &c, nil
}

func TestEnsure_DeduplicatesBySlug(t *testing.T) {
	repo := &memoryRepo{bySlug: map[string]domain.Category{}}
	svc := New(repo)

	got, err := svc.Ensure(context.Background(), []string{"Coffee Mugs", "coffee-mugs", " ", "Tees"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "coffee-mugs", got[0].Slug)
	assert.Equal(t, "Coffee Mugs", got[0].Name)
	assert.Equal(t, "tees", got[1].Slug)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hoodies & Sweaters": "hoodies-sweaters",
		"  Mugs ":            "mugs",
		"A--B":               "a-b",
		"Café 2":             "caf-2",
		"!!!":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
