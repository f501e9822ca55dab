package gateway

import (
	"context"

	"lean-commerce/internal/domain"
)

type Repository interface {
	// List returns gateways in configuration order.
	List(ctx context.Context) ([]domain.Gateway, error)
	Upsert(ctx context.Context, g domain.Gateway) error
}
