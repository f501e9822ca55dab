package customer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"lean-commerce/internal/domain"
	tokenrepo "lean-commerce/internal/repository/token"
)

type tokenManager struct {
	repo tokenrepo.Repository
	now  func() time.Time
}

func newTokenManager(repo tokenrepo.Repository) *tokenManager {
	return &tokenManager{
		repo: repo,
		now:  time.Now,
	}
}

// Issue stores a fresh random token for the customer. A zero ttl issues a
// token that never expires.
func (m *tokenManager) Issue(ctx context.Context, customerID int64, kind string, ttl time.Duration) (string, error) {
	var expiresAt *time.Time
	if ttl > 0 {
		t := m.now().Add(ttl)
		expiresAt = &t
	}
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:      token,
			CustomerID: customerID,
			Kind:       kind,
			ExpiresAt:  expiresAt,
		})
		if err == nil {
			return token, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("token collision")
}

// Validate returns the customer id bound to token. Unknown, expired and
// wrong-kind tokens report ok=false without an error.
func (m *tokenManager) Validate(ctx context.Context, token, kind string) (int64, bool, error) {
	meta, err := m.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if meta.Kind != kind || meta.CustomerID == 0 {
		return 0, false, nil
	}
	if meta.ExpiresAt != nil && m.now().After(*meta.ExpiresAt) {
		_ = m.repo.Delete(ctx, token)
		return 0, false, nil
	}
	return meta.CustomerID, true, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
