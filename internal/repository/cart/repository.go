package cart

import (
	"context"

	"lean-commerce/internal/domain"
)

// Repository stores carts for sessions and for customers. Saves are
// compare-and-swap on Cart.Version and return domain.ErrVersionConflict when
// the stored copy moved on. A successful save bumps Cart.Version.
type Repository interface {
	GetSessionCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	SaveSessionCart(ctx context.Context, sessionID string, cart *domain.Cart) error
	GetCustomerCart(ctx context.Context, customerID int64, metaKey string) (*domain.Cart, error)
	SaveCustomerCart(ctx context.Context, customerID int64, metaKey string, cart *domain.Cart) error
}
