package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemstock/chemstock/internal/authz"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, email, fullName, passwordHash, role string) (uuid.UUID, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service handles user management business logic.
type Service struct {
	repo  RepositoryPort
	authz *authz.Service
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, authzService *authz.Service) *Service {
	return &Service{repo: repo, authz: authzService}
}

// ListUsers returns all users with role tiers.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a single user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a new account with an initial role tier.
func (s *Service) CreateUser(ctx context.Context, input NewUser) (uuid.UUID, error) {
	role, err := authz.ParseRole(input.Role)
	if err != nil {
		return uuid.Nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	return s.repo.CreateUser(ctx, email, strings.TrimSpace(input.FullName), string(hash), string(role))
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
