package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessgate/accessgate/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const elementColumns = `id, name, slug, created_at, updated_at`

// Create inserts a new element. A duplicate slug yields shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, name, slug string) (Element, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO business_elements (name, slug) VALUES ($1, $2) RETURNING `+elementColumns,
		name, slug,
	)
	elem, err := scanElement(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Element{}, fmt.Errorf("catalog: element %q: %w", slug, shared.ErrConflict)
		}
		return Element{}, err
	}
	return elem, nil
}

// GetBySlug fetches an element by its slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Element, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+elementColumns+` FROM business_elements WHERE slug = $1`, slug,
	)
	elem, err := scanElement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Element{}, fmt.Errorf("catalog: element %q: %w", slug, shared.ErrNotFound)
		}
		return Element{}, err
	}
	return elem, nil
}

// Update renames an element addressed by its current slug.
func (r *Repository) Update(ctx context.Context, slug, name, newSlug string) (Element, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE business_elements SET name = $2, slug = $3, updated_at = NOW() WHERE slug = $1 RETURNING `+elementColumns,
		slug, name, newSlug,
	)
	elem, err := scanElement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Element{}, fmt.Errorf("catalog: element %q: %w", slug, shared.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return Element{}, fmt.Errorf("catalog: element %q: %w", newSlug, shared.ErrConflict)
		}
		return Element{}, err
	}
	return elem, nil
}

// Delete removes an element. Its permission grants go with it via the
// ON DELETE CASCADE foreign key.
func (r *Repository) Delete(ctx context.Context, slug string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM business_elements WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: element %q: %w", slug, shared.ErrNotFound)
	}
	return nil
}

// List returns elements matching the filters, ordered by name.
func (r *Repository) List(ctx context.Context, filters ElementListFilters) ([]Element, error) {
	query := `SELECT ` + elementColumns + ` FROM business_elements`
	args := []any{}
	if filters.Search != "" {
		query += ` WHERE name ILIKE $1 OR slug ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var elems []Element
	for rows.Next() {
		elem, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return elems, nil
}

func scanElement(row pgx.Row) (Element, error) {
	var elem Element
	err := row.Scan(&elem.ID, &elem.Name, &elem.Slug, &elem.CreatedAt, &elem.UpdatedAt)
	return elem, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
