package session

import (
	"context"
	"time"

	"lean-commerce/internal/domain"
)

// Repository tracks transport sessions and the customer logged in on them.
type Repository interface {
	// Touch extends the expiry of a stored session. Unknown ids return ErrNotFound.
	Touch(ctx context.Context, id string, ttl time.Duration) (*domain.Session, error)
	// Ensure stores the session if missing and extends its expiry.
	Ensure(ctx context.Context, id string, ttl time.Duration) (*domain.Session, error)
	// SetCustomer binds customerID to the session; zero logs the session out.
	SetCustomer(ctx context.Context, id string, customerID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
