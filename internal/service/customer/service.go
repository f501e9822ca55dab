package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
	custrepo "lean-commerce/internal/repository/customer"
	tokenrepo "lean-commerce/internal/repository/token"
)

// Service resolves client tokens and emails to customers and handles
// signup/login flows.
type Service struct {
	repo        custrepo.Repository
	tokens      *tokenManager
	tokenTTL    time.Duration
	passwordMin int
	logger      *zap.Logger
}

// New creates a Service. Issued user tokens do not expire.
func New(repo custrepo.Repository, tokens tokenrepo.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens),
		passwordMin: 8,
		logger:      logging.OrNop(logger).Named("customer_service"),
	}
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ResolveToken looks up the customer whose stored user token equals token.
// "No match" is reported with ok=false, never as an error.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domain.Customer, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false, nil
	}
	customerID, ok, err := s.tokens.Validate(ctx, token, tokenrepo.KindUser)
	if err != nil {
		return nil, false, domain.Internal(err, "customer.resolve_token", "token lookup failed")
	}
	if !ok {
		return nil, false, nil
	}
	return s.byID(ctx, customerID)
}

// ResolveEmail looks up a customer by email with the same "no match" contract as ResolveToken.
func (s *Service) ResolveEmail(ctx context.Context, email string) (*domain.Customer, bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, false, nil
	}
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, domain.Internal(err, "customer.resolve_email", "customer lookup failed")
	}
	return c, true, nil
}

// Get returns the customer with id, or ok=false.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	return s.byID(ctx, id)
}

func (s *Service) byID(ctx context.Context, id int64) (*domain.Customer, bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, domain.Internal(err, "customer.get", "customer lookup failed")
	}
	return c, true, nil
}

// Signup registers a new customer and issues its user token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, string, error) {
	const op = "customer.signup"
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, "", domain.Invalid(op, "Invalid data, email is required.")
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, "", domain.Invalid(op, err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", domain.Internal(err, op, "hash password")
	}

	c, err := s.repo.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, "", domain.Errorf(domain.EALREADYEXISTS, op, "An account is already registered with %s.", email)
		}
		return nil, "", domain.Internal(err, op, "create customer")
	}

	token, err := s.tokens.Issue(ctx, c.ID, tokenrepo.KindUser, s.tokenTTL)
	if err != nil {
		return nil, "", domain.Internal(err, op, "issue token")
	}
	s.logger.Info("customer registered", zap.Int64("customer_id", c.ID))
	return c, token, nil
}

// Login validates credentials and returns the customer with a freshly issued user token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Customer, string, error) {
	const op = "customer.login"
	password = strings.TrimSpace(password)
	c, ok, err := s.ResolveEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if !ok || c.PasswordHash == "" {
		return nil, "", domain.Errorf(domain.ECREDENTIALS, op, "Invalid email or password.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.Errorf(domain.ECREDENTIALS, op, "Invalid email or password.")
	}

	token, err := s.tokens.Issue(ctx, c.ID, tokenrepo.KindUser, s.tokenTTL)
	if err != nil {
		return nil, "", domain.Internal(err, op, "issue token")
	}
	return c, token, nil
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
