package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessgate/accessgate/internal/roles"
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

const grantColumns = `g.id, g.element_id, e.slug, g.role,
	g.can_list, g.can_create, g.can_retrieve, g.can_update, g.can_partial_update, g.can_delete,
	g.owner_override, g.created_at, g.updated_at`

const grantFrom = ` FROM permission_grants g JOIN business_elements e ON e.id = g.element_id`

// Create inserts a new grant row. A second row for the same (element, role)
// pair yields shared.ErrConflict; updates must go through Update.
func (r *Repository) Create(ctx context.Context, elementID int64, role roles.Role, caps Capabilities) (Grant, error) {
	row := r.pool.QueryRow(ctx,
		`WITH inserted AS (
			INSERT INTO permission_grants
				(element_id, role, can_list, can_create, can_retrieve, can_update, can_partial_update, can_delete, owner_override)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT `+grantColumns+` FROM inserted g JOIN business_elements e ON e.id = g.element_id`,
		elementID, role,
		caps.List, caps.Create, caps.Retrieve, caps.Update, caps.PartialUpdate, caps.Delete,
		caps.OwnerOverride,
	)
	grant, err := scanGrant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Grant{}, fmt.Errorf("grants: element %d role %s: %w", elementID, role, shared.ErrConflict)
		}
		return Grant{}, err
	}
	return grant, nil
}

// Get fetches the grant for one (element, role) pair. Absence is reported as
// shared.ErrNotFound; callers on the decision path treat it as all-false.
func (r *Repository) Get(ctx context.Context, elementID int64, role roles.Role) (Grant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+grantColumns+grantFrom+` WHERE g.element_id = $1 AND g.role = $2`,
		elementID, role,
	)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, fmt.Errorf("grants: element %d role %s: %w", elementID, role, shared.ErrNotFound)
		}
		return Grant{}, err
	}
	return grant, nil
}

// GetByID fetches a grant row by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (Grant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+grantColumns+grantFrom+` WHERE g.id = $1`, id,
	)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, fmt.Errorf("grants: grant %d: %w", id, shared.ErrNotFound)
		}
		return Grant{}, err
	}
	return grant, nil
}

// Update replaces the capability flags of an existing grant row.
func (r *Repository) Update(ctx context.Context, id int64, caps Capabilities) (Grant, error) {
	row := r.pool.QueryRow(ctx,
		`WITH updated AS (
			UPDATE permission_grants SET
				can_list = $2, can_create = $3, can_retrieve = $4, can_update = $5,
				can_partial_update = $6, can_delete = $7, owner_override = $8, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+grantColumns+` FROM updated g JOIN business_elements e ON e.id = g.element_id`,
		id,
		caps.List, caps.Create, caps.Retrieve, caps.Update, caps.PartialUpdate, caps.Delete,
		caps.OwnerOverride,
	)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, fmt.Errorf("grants: grant %d: %w", id, shared.ErrNotFound)
		}
		return Grant{}, err
	}
	return grant, nil
}

// Delete removes a grant row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permission_grants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("grants: grant %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// List returns grants matching the filters, ordered by element slug then role.
func (r *Repository) List(ctx context.Context, filters GrantListFilters) ([]Grant, error) {
	query := `SELECT ` + grantColumns + grantFrom
	args := []any{}
	where := ""
	if filters.ElementSlug != "" {
		args = append(args, filters.ElementSlug)
		where = fmt.Sprintf(" WHERE e.slug = $%d", len(args))
	}
	if filters.Role != "" {
		args = append(args, filters.Role)
		if where == "" {
			where = fmt.Sprintf(" WHERE g.role = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND g.role = $%d", len(args))
		}
	}
	query += where + ` ORDER BY e.slug, g.role`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	err := row.Scan(
		&g.ID, &g.ElementID, &g.ElementSlug, &g.Role,
		&g.Capabilities.List, &g.Capabilities.Create, &g.Capabilities.Retrieve,
		&g.Capabilities.Update, &g.Capabilities.PartialUpdate, &g.Capabilities.Delete,
		&g.Capabilities.OwnerOverride, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
