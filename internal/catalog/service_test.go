package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessgate/accessgate/internal/shared"
)

type mockRepository struct {
	elements map[string]Element
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{elements: make(map[string]Element), nextID: 1}
}

func (m *mockRepository) Create(ctx context.Context, name, slug string) (Element, error) {
	if _, ok := m.elements[slug]; ok {
		return Element{}, fmt.Errorf("element %s: %w", slug, shared.ErrConflict)
	}
	elem := Element{ID: m.nextID, Name: name, Slug: slug}
	m.nextID++
	m.elements[slug] = elem
	return elem, nil
}

func (m *mockRepository) GetBySlug(ctx context.Context, slug string) (Element, error) {
	elem, ok := m.elements[slug]
	if !ok {
		return Element{}, fmt.Errorf("element %s: %w", slug, shared.ErrNotFound)
	}
	return elem, nil
}

func (m *mockRepository) Update(ctx context.Context, slug, name, newSlug string) (Element, error) {
	elem, ok := m.elements[slug]
	if !ok {
		return Element{}, fmt.Errorf("element %s: %w", slug, shared.ErrNotFound)
	}
	if newSlug != slug {
		if _, taken := m.elements[newSlug]; taken {
			return Element{}, fmt.Errorf("element %s: %w", newSlug, shared.ErrConflict)
		}
		delete(m.elements, slug)
	}
	elem.Name = name
	elem.Slug = newSlug
	m.elements[newSlug] = elem
	return elem, nil
}

func (m *mockRepository) Delete(ctx context.Context, slug string) error {
	if _, ok := m.elements[slug]; !ok {
		return fmt.Errorf("element %s: %w", slug, shared.ErrNotFound)
	}
	delete(m.elements, slug)
	return nil
}

func (m *mockRepository) List(ctx context.Context, filters ElementListFilters) ([]Element, error) {
	result := []Element{}
	for _, elem := range m.elements {
		result = append(result, elem)
	}
	return result, nil
}

func TestCreateElement(t *testing.T) {
	service := NewService(newMockRepository())

	elem, err := service.Create(context.Background(), "Reporting Documents", "reporting-documents")
	require.NoError(t, err)
	assert.Equal(t, "Reporting Documents", elem.Name)
	assert.Equal(t, "reporting-documents", elem.Slug)
}

func TestCreateElementTrimsInput(t *testing.T) {
	service := NewService(newMockRepository())

	elem, err := service.Create(context.Background(), "  Docs  ", "  docs  ")
	require.NoError(t, err)
	assert.Equal(t, "Docs", elem.Name)
	assert.Equal(t, "docs", elem.Slug)
}

func TestCreateElementInvalidSlug(t *testing.T) {
	service := NewService(newMockRepository())

	for _, slug := range []string{"", "Docs", "docs_v2", "-docs", "docs-", "docs v2"} {
		_, err := service.Create(context.Background(), "Docs", slug)
		assert.Error(t, err, "slug %q", slug)
	}
}

func TestCreateElementMissingName(t *testing.T) {
	service := NewService(newMockRepository())

	_, err := service.Create(context.Background(), "   ", "docs")
	require.Error(t, err)
}

func TestCreateElementDuplicateSlug(t *testing.T) {
	service := NewService(newMockRepository())

	_, err := service.Create(context.Background(), "Docs", "docs")
	require.NoError(t, err)
	_, err = service.Create(context.Background(), "Docs Again", "docs")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestGetElementNotFound(t *testing.T) {
	service := NewService(newMockRepository())

	_, err := service.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateElementKeepsBlankFields(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	_, err := service.Create(context.Background(), "Docs", "docs")
	require.NoError(t, err)

	elem, err := service.Update(context.Background(), "docs", "Documents", "")
	require.NoError(t, err)
	assert.Equal(t, "Documents", elem.Name)
	assert.Equal(t, "docs", elem.Slug)

	elem, err = service.Update(context.Background(), "docs", "", "documents")
	require.NoError(t, err)
	assert.Equal(t, "Documents", elem.Name)
	assert.Equal(t, "documents", elem.Slug)
}

func TestUpdateElementInvalidSlug(t *testing.T) {
	service := NewService(newMockRepository())
	_, err := service.Create(context.Background(), "Docs", "docs")
	require.NoError(t, err)

	_, err = service.Update(context.Background(), "docs", "", "Bad Slug")
	require.Error(t, err)
}

func TestDeleteElement(t *testing.T) {
	service := NewService(newMockRepository())
	_, err := service.Create(context.Background(), "Docs", "docs")
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), "docs"))
	err = service.Delete(context.Background(), "docs")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
