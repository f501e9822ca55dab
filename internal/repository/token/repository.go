package token

import (
	"context"
	"time"
)

// KindUser marks tokens handed to clients as token_id.
const KindUser = "user_token"

type Token struct {
	Token      string
	CustomerID int64
	Kind       string
	// ExpiresAt is nil for tokens that never expire.
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	DeleteByCustomer(ctx context.Context, customerID int64, kind string) (int64, error)
}
