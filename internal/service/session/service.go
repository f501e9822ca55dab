// Package session issues and tracks the anonymous transport sessions that
// carry session carts and session logins.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
)

type sessionRepo interface {
	Touch(ctx context.Context, id string, ttl time.Duration) (*domain.Session, error)
	Ensure(ctx context.Context, id string, ttl time.Duration) (*domain.Session, error)
	SetCustomer(ctx context.Context, id string, customerID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	repo   sessionRepo
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

func New(repo sessionRepo, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Service{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.OrNop(logger).Named("session_service"),
	}
}

// TTL is the sliding session lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Start resumes the session with id, or begins a new one when id is empty or
// not a session id this service would issue. issued reports a new session.
// New sessions are not stored until a session cart is saved or a customer
// logs in on them.
func (s *Service) Start(ctx context.Context, id string) (sess *domain.Session, issued bool, err error) {
	id = strings.TrimSpace(id)
	if _, perr := uuid.Parse(id); id == "" || perr != nil {
		return &domain.Session{ID: s.newID()}, true, nil
	}
	sess, err = s.repo.Touch(ctx, id, s.ttl)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Session{ID: id}, false, nil
	}
	if err != nil {
		return nil, false, domain.Internal(err, "session.start", "session unavailable")
	}
	return sess, false, nil
}

// Login binds customerID to the session, storing the session first.
func (s *Service) Login(ctx context.Context, id string, customerID int64) error {
	const op = "session.login"
	if customerID == 0 {
		return domain.Invalid(op, "customer required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.NotFound(op, "session", id)
	}
	if _, err := s.repo.Ensure(ctx, id, s.ttl); err != nil {
		return domain.Internal(err, op, "session unavailable")
	}
	return s.bind(ctx, id, customerID)
}

// Logout clears the customer bound to the session. Sessions that were never
// stored have nobody logged in.
func (s *Service) Logout(ctx context.Context, id string) error {
	err := s.bind(ctx, id, 0)
	if domain.IsCode(err, domain.ENOTFOUND) {
		return nil
	}
	return err
}

func (s *Service) bind(ctx context.Context, id string, customerID int64) error {
	if err := s.repo.SetCustomer(ctx, id, customerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("session.bind", "session", id)
		}
		return domain.Internal(err, "session.bind", "session unavailable")
	}
	return nil
}

// Sweep removes expired sessions together with their carts.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}
