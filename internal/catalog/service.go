package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	Create(ctx context.Context, name, slug string) (Element, error)
	GetBySlug(ctx context.Context, slug string) (Element, error)
	Update(ctx context.Context, slug, name, newSlug string) (Element, error)
	Delete(ctx context.Context, slug string) error
	List(ctx context.Context, filters ElementListFilters) ([]Element, error)
}

// Service handles catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new protected element.
func (s *Service) Create(ctx context.Context, name, slug string) (Element, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return Element{}, fmt.Errorf("catalog: element name required")
	}
	if !slugPattern.MatchString(slug) {
		return Element{}, fmt.Errorf("catalog: invalid slug %q", slug)
	}
	return s.repo.Create(ctx, name, slug)
}

// GetBySlug resolves an element by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Element, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ElementBySlug satisfies the decision engine's resolver contract.
func (s *Service) ElementBySlug(ctx context.Context, slug string) (Element, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Update modifies name and/or slug of an existing element. Empty fields keep
// their current value.
func (s *Service) Update(ctx context.Context, slug, name, newSlug string) (Element, error) {
	current, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Element{}, err
	}
	name = strings.TrimSpace(name)
	newSlug = strings.TrimSpace(newSlug)
	if name == "" {
		name = current.Name
	}
	if newSlug == "" {
		newSlug = current.Slug
	}
	if !slugPattern.MatchString(newSlug) {
		return Element{}, fmt.Errorf("catalog: invalid slug %q", newSlug)
	}
	return s.repo.Update(ctx, slug, name, newSlug)
}

// Delete removes an element and, transitively, its grants.
func (s *Service) Delete(ctx context.Context, slug string) error {
	return s.repo.Delete(ctx, slug)
}

// List returns catalog entries.
func (s *Service) List(ctx context.Context, filters ElementListFilters) ([]Element, error) {
	return s.repo.List(ctx, filters)
}
