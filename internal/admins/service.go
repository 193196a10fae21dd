package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/indarelin/backoffice/pkg/logging"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

// Service handles admin accounts and token issuance.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	cost   int
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, secret string, ttl time.Duration, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate checks credentials and returns a signed HS256 token whose
// subject is the admin ID.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*LoginResponse, error) {
	if len(s.secret) == 0 {
		return nil, ErrAuthDisabled
	}
	admin, err := s.repo.GetByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   admin.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("admins: sign token: %w", err)
	}
	s.logger.Info("admin logged in", "admin_id", admin.ID)
	return &LoginResponse{Token: signed, ExpiresAt: expires.UTC()}, nil
}

func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.repo.List(ctx)
}

// Create hashes the password and stores a new admin.
func (s *Service) Create(ctx context.Context, username, password string) (*Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("admins: hash password: %w", err)
	}
	a := &Admin{
		ID:           uuid.NewString(),
		Username:     normalizeUsername(username),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ChangePassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("admins: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// Delete removes an admin unless it is the only one left. The repository
// enforces the rule inside the delete itself.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("admin deleted", "admin_id", id)
	return nil
}

// EnsureBootstrap creates the seed admin when no admins exist yet.
func (s *Service) EnsureBootstrap(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	a, err := s.Create(ctx, username, password)
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", "admin_id", a.ID, "username", a.Username)
	return nil
}
