package identity

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

// Repository defines persistence operations for identity.
type Repository interface {
	CreateWithRole(ctx context.Context, user User, role roles.Role) (User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*User, error)
	Deactivate(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, first_name, last_name, middle_name, password_hash,
	is_staff, is_superuser, is_active, created_at, updated_at`

// CreateWithRole inserts the account and its initial role assignment in one
// transaction, so no active principal ever exists without a role.
func (r *PGRepository) CreateWithRole(ctx context.Context, user User, role roles.Role) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO users (email, first_name, last_name, middle_name, password_hash)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+userColumns,
			user.Email, user.FirstName, user.LastName, user.MiddleName, user.PasswordHash,
		)
		u, err := scanUser(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("identity: email %s: %w", user.Email, shared.ErrConflict)
			}
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_assignments (user_id, role) VALUES ($1, $2)`, u.ID, role,
		); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by ID.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// UpdateProfile applies partial name changes. Email is never touched here.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			middle_name = COALESCE($4, middle_name),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, update.FirstName, update.LastName, update.MiddleName,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("identity: user %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// Deactivate soft-deletes the account. Assignments and history are retained.
func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity: user %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.MiddleName, &u.PasswordHash,
		&u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

var _ Repository = (*PGRepository)(nil)
