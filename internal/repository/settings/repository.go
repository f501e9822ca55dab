package settings

import (
	"context"

	"lean-commerce/internal/domain"
)

// Field is one configured checkout field.
type Field struct {
	Side     string
	Key      string
	Label    string
	Required bool
	Position int
}

const (
	SideBilling  = "billing"
	SideShipping = "shipping"
)

// Repository reads the live checkout configuration.
type Repository interface {
	CheckoutFields(ctx context.Context) (domain.CheckoutFields, error)
	UpsertField(ctx context.Context, f Field) error
}
