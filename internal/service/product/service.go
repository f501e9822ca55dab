package product

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"lean-commerce/internal/domain"
	productrepo "lean-commerce/internal/repository/product"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type categoryLookup interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
}

type Service struct {
	repo       productrepo.Repository
	categories categoryLookup
}

func New(repo productrepo.Repository, categories categoryLookup) *Service {
	return &Service{repo: repo, categories: categories}
}

// ListInput selects a page of the catalog. Page is 1-based.
type ListInput struct {
	Category string
	Page     int
	PerPage  int
}

// List returns published products, variable products with their variations.
func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Product, error) {
	const op = "product.list"
	perPage := in.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	page := in.Page
	if page < 1 {
		page = 1
	}

	slug := strings.ToLower(strings.TrimSpace(in.Category))
	if slug != "" {
		if _, err := s.categories.GetBySlug(ctx, slug); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NotFound(op, "category", slug)
			}
			return nil, domain.Internal(err, op, "load category")
		}
	}

	products, err := s.repo.List(ctx, productrepo.ListFilter{
		CategorySlug: slug,
		Limit:        perPage,
		Offset:       (page - 1) * perPage,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "list products")
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("product.get", "product", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, domain.Internal(err, "product.get", "load product")
	}
	return p, nil
}
