package assignments

import (
	"context"
	"fmt"

	"github.com/accessgate/accessgate/internal/roles"
	"github.com/accessgate/accessgate/internal/shared"
)

// RepositoryPort defines data access methods for assignments.
type RepositoryPort interface {
	Assign(ctx context.Context, userID int64, role roles.Role) (Assignment, error)
	Get(ctx context.Context, id int64) (Assignment, error)
	Revoke(ctx context.Context, id int64) error
	RolesOf(ctx context.Context, userID int64) ([]roles.Role, error)
	List(ctx context.Context, filters AssignmentListFilters) ([]Assignment, int, error)
}

// Directory resolves principals for assignment management.
type Directory interface {
	UserByEmail(ctx context.Context, email string) (UserRef, error)
}

// Service handles role assignment business logic.
type Service struct {
	repo      RepositoryPort
	directory Directory
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, directory Directory) *Service {
	return &Service{repo: repo, directory: directory}
}

// Assign grants a role to the principal addressed by email. Deactivated
// accounts cannot receive roles; a duplicate pair yields shared.ErrConflict.
func (s *Service) Assign(ctx context.Context, email string, role roles.Role) (Assignment, error) {
	if !role.Valid() {
		return Assignment{}, fmt.Errorf("assignments: unknown role %q", role)
	}
	user, err := s.directory.UserByEmail(ctx, email)
	if err != nil {
		return Assignment{}, err
	}
	if !user.Active {
		return Assignment{}, fmt.Errorf("assignments: user %s is deactivated: %w", email, shared.ErrInvalidOperation)
	}
	return s.repo.Assign(ctx, user.ID, role)
}

// Get returns one assignment.
func (s *Service) Get(ctx context.Context, id int64) (Assignment, error) {
	return s.repo.Get(ctx, id)
}

// Revoke removes an assignment. Fails with shared.ErrInvalidOperation when it
// is the principal's last remaining role or the principal is deactivated.
func (s *Service) Revoke(ctx context.Context, id int64) error {
	return s.repo.Revoke(ctx, id)
}

// RolesOf satisfies the decision engine's role source contract.
func (s *Service) RolesOf(ctx context.Context, userID int64) ([]roles.Role, error) {
	return s.repo.RolesOf(ctx, userID)
}

// List returns one page of assignments, optionally filtered by assignee
// email, with pagination metadata.
func (s *Service) List(ctx context.Context, filters AssignmentListFilters) ([]Assignment, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}
