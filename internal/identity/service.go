package identity

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/accessgate/accessgate/internal/roles"
	"github.com/accessgate/accessgate/internal/shared"
)

// DefaultRole is assigned to every freshly registered account.
const DefaultRole = roles.Guest

// SessionRevoker drops every live session of a principal. Implemented by the
// shared session manager; the service calls it when an account is deactivated.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID int64) error
}

// Registration carries the signup payload after transport validation.
type Registration struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	MiddleName string
}

// Service wraps identity business rules.
type Service struct {
	repo     Repository
	sessions SessionRevoker
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions SessionRevoker) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Register creates an account with a bcrypt password hash and the default
// role. A taken email yields shared.ErrConflict.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" {
		return User{}, fmt.Errorf("identity: email required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("identity: hash password: %w", err)
	}
	return s.repo.CreateWithRole(ctx, User{
		Email:        email,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		MiddleName:   strings.TrimSpace(reg.MiddleName),
		PasswordHash: string(hash),
	}, DefaultRole)
}

// Authenticate validates email/password credentials. Unknown accounts,
// deactivated accounts and wrong passwords are indistinguishable to callers.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// GetByID fetches an account by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByEmail fetches an account by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// UpdateProfile applies partial name changes to the account.
func (s *Service) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*User, error) {
	return s.repo.UpdateProfile(ctx, id, update)
}

// Deactivate soft-deletes the account and revokes all of its sessions, the
// session-store analogue of blacklisting outstanding tokens.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, id); err != nil {
			return fmt.Errorf("identity: revoke sessions for user %d: %w", id, err)
		}
	}
	return nil
}
