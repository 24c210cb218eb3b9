package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessgate/accessgate/internal/platform/db"
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

// Assign inserts a (user, role) pair. The unique index turns a duplicate pair
// into shared.ErrConflict without a read-then-write race.
func (r *Repository) Assign(ctx context.Context, userID int64, role roles.Role) (Assignment, error) {
	row := r.pool.QueryRow(ctx,
		`WITH inserted AS (
			INSERT INTO role_assignments (user_id, role) VALUES ($1, $2) RETURNING *
		)
		SELECT a.id, a.user_id, u.email, a.role, a.created_at
		FROM inserted a JOIN users u ON u.id = a.user_id`,
		userID, role,
	)
	a, err := scanAssignment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Assignment{}, fmt.Errorf("assignments: user %d role %s: %w", userID, role, shared.ErrConflict)
		}
		return Assignment{}, err
	}
	return a, nil
}

// Get fetches an assignment by primary key.
func (r *Repository) Get(ctx context.Context, id int64) (Assignment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT a.id, a.user_id, u.email, a.role, a.created_at
		FROM role_assignments a JOIN users u ON u.id = a.user_id
		WHERE a.id = $1`, id,
	)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, fmt.Errorf("assignments: assignment %d: %w", id, shared.ErrNotFound)
		}
		return Assignment{}, err
	}
	return a, nil
}

// Revoke deletes an assignment. Concurrent revokes for the same user
// serialize on the joined users row, and the count locks every one of the
// user's assignment rows: when a concurrent transaction already deleted one
// of them, the lock attempt fails with a serialization error instead of
// counting a stale snapshot, so the user always retains at least one role.
func (r *Repository) Revoke(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		var active bool
		err := tx.QueryRow(ctx,
			`SELECT a.user_id, u.is_active
			FROM role_assignments a JOIN users u ON u.id = a.user_id
			WHERE a.id = $1
			FOR UPDATE`, id,
		).Scan(&userID, &active)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("assignments: assignment %d: %w", id, shared.ErrNotFound)
			}
			return err
		}
		if !active {
			return fmt.Errorf("assignments: user %d is deactivated: %w", userID, shared.ErrInvalidOperation)
		}

		rows, err := tx.Query(ctx,
			`SELECT id FROM role_assignments WHERE user_id = $1 FOR UPDATE`, userID,
		)
		if err != nil {
			return err
		}
		var count int
		for rows.Next() {
			count++
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("assignments: user %d must retain at least one role: %w", userID, shared.ErrInvalidOperation)
		}

		_, err = tx.Exec(ctx, `DELETE FROM role_assignments WHERE id = $1`, id)
		return err
	})
}

// RolesOf returns the role set assigned to a user. Order carries no meaning.
func (r *Repository) RolesOf(ctx context.Context, userID int64) ([]roles.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role FROM role_assignments WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assigned []roles.Role
	for rows.Next() {
		var role roles.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		assigned = append(assigned, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assigned, nil
}

// List returns one page of assignments matching the filters plus the total
// match count, ordered by email then role.
func (r *Repository) List(ctx context.Context, filters AssignmentListFilters) ([]Assignment, int, error) {
	where := ``
	args := []any{}
	if filters.Search != "" {
		where = ` WHERE u.email ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*)
		FROM role_assignments a JOIN users u ON u.id = a.user_id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	query := `SELECT a.id, a.user_id, u.email, a.role, a.created_at
		FROM role_assignments a JOIN users u ON u.id = a.user_id` + where +
		fmt.Sprintf(` ORDER BY u.email, a.role LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.UserID, &a.UserEmail, &a.Role, &a.CreatedAt)
	return a, err
}
