package coupon

import (
	"context"

	"lean-commerce/internal/domain"
)

type Repository interface {
	// GetByCode matches codes case-insensitively.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	IncrementUsage(ctx context.Context, code string) error
	Upsert(ctx context.Context, c domain.Coupon) error
}
