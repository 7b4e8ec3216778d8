package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateGrant indicates the assignment already exists.
var ErrDuplicateGrant = errors.New("authz: grant already exists")

// Store describes the persistence operations the resolver depends on.
// Raw tags are returned as strings so the service owns vocabulary validation.
type Store interface {
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role string) error
	GrantPermission(ctx context.Context, userID uuid.UUID, permission string, grantedBy uuid.UUID) error
	RevokePermission(ctx context.Context, userID uuid.UUID, permission string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RolesForUser returns the raw role rows assigned to the user.
func (r *Repository) RolesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// PermissionsForUser returns the raw permission rows granted to the user.
func (r *Repository) PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission FROM user_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// AssignRole inserts a role assignment row.
func (r *Repository) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, role)
	return mapDuplicate(err)
}

// RemoveRole deletes a role assignment row.
func (r *Repository) RemoveRole(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	return err
}

// GrantPermission inserts an individual permission grant.
func (r *Repository) GrantPermission(ctx context.Context, userID uuid.UUID, permission string, grantedBy uuid.UUID) error {
	var by any
	if grantedBy != uuid.Nil {
		by = grantedBy
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO user_permissions (user_id, permission, granted_by) VALUES ($1, $2, $3)`, userID, permission, by)
	return mapDuplicate(err)
}

// RevokePermission deletes an individual permission grant.
func (r *Repository) RevokePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1 AND permission = $2`, userID, permission)
	return err
}

func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateGrant
	}
	return err
}

var _ Store = (*Repository)(nil)
