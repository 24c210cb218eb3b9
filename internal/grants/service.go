package grants

import (
	"context"
	"fmt"

	"github.com/accessgate/accessgate/internal/catalog"
	"github.com/accessgate/accessgate/internal/roles"
)

// RepositoryPort defines data access methods for grants.
type RepositoryPort interface {
	Create(ctx context.Context, elementID int64, role roles.Role, caps Capabilities) (Grant, error)
	Get(ctx context.Context, elementID int64, role roles.Role) (Grant, error)
	GetByID(ctx context.Context, id int64) (Grant, error)
	Update(ctx context.Context, id int64, caps Capabilities) (Grant, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters GrantListFilters) ([]Grant, error)
}

// ElementResolver resolves catalog slugs for grant management.
type ElementResolver interface {
	ElementBySlug(ctx context.Context, slug string) (catalog.Element, error)
}

// Service handles grant business logic.
type Service struct {
	repo    RepositoryPort
	catalog ElementResolver
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog ElementResolver) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Create adds a grant row for (elementSlug, role). The slug must resolve to a
// catalog entry and the pair must not already have a row.
func (s *Service) Create(ctx context.Context, elementSlug string, role roles.Role, caps Capabilities) (Grant, error) {
	if !role.Valid() {
		return Grant{}, fmt.Errorf("grants: unknown role %q", role)
	}
	elem, err := s.catalog.ElementBySlug(ctx, elementSlug)
	if err != nil {
		return Grant{}, err
	}
	return s.repo.Create(ctx, elem.ID, role, caps)
}

// Get returns the grant for one (element, role) matrix cell.
func (s *Service) Get(ctx context.Context, elementID int64, role roles.Role) (Grant, error) {
	return s.repo.Get(ctx, elementID, role)
}

// Grant satisfies the decision engine's grant source contract.
func (s *Service) Grant(ctx context.Context, elementID int64, role roles.Role) (Grant, error) {
	return s.repo.Get(ctx, elementID, role)
}

// GetByID returns a grant row by primary key.
func (s *Service) GetByID(ctx context.Context, id int64) (Grant, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces the capability flags of an existing grant. This is the only
// mutation path for existing rows; Create refuses duplicates.
func (s *Service) Update(ctx context.Context, id int64, caps Capabilities) (Grant, error) {
	return s.repo.Update(ctx, id, caps)
}

// Delete removes a grant row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// List returns matrix rows matching the filters.
func (s *Service) List(ctx context.Context, filters GrantListFilters) ([]Grant, error) {
	if filters.Role != "" && !filters.Role.Valid() {
		return nil, fmt.Errorf("grants: unknown role %q", filters.Role)
	}
	return s.repo.List(ctx, filters)
}
