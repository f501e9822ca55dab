package category

import (
	"context"
	"strings"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/repository/category"
)

type Service struct {
	repo category.Repository
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

// Ensure upserts a category for every slug and returns them in input order.
func (s *Service) Ensure(ctx context.Context, slugs []string) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, raw := range slugs {
		slug := Slugify(raw)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		c, err := s.repo.Upsert(ctx, domain.Category{Slug: slug, Name: strings.TrimSpace(raw)})
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// Slugify lowercases name and joins its words with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
