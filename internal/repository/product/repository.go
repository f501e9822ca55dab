package product

import (
	"context"

	"lean-commerce/internal/domain"
)

// ListFilter narrows a catalog listing. Zero Limit means the repository default.
type ListFilter struct {
	CategorySlug string
	Limit        int
	Offset       int
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// List returns published top-level products with their variations attached.
	List(ctx context.Context, filter ListFilter) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetCategories(ctx context.Context, productID int64, slugs []string) error
}
