package order

import (
	"context"

	"lean-commerce/internal/domain"
)

// Repository persists orders together with their line items and coupon lines.
type Repository interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, statuses []string, limit int) ([]domain.Order, error)
	SetAddresses(ctx context.Context, id int64, billing, shipping domain.Address) error
	UpdateTotals(ctx context.Context, id int64, subtotal, discount, total int64) error
	UpdatePayment(ctx context.Context, id int64, status, method, transactionID string) error
	Delete(ctx context.Context, id int64) error
}
