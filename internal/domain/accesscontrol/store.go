package accesscontrol

import (
	"context"
	"errors"
	"time"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var QueryTimeoutDuration = time.Second * 5

type Store interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
	AssignRoleByName(ctx context.Context, userID int64, name RoleName) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	GetUserRoles(ctx context.Context, userID int64) ([]Role, error)
	GetUserRoleNames(ctx context.Context, userID int64) ([]string, error)
	UserHasRole(ctx context.Context, userID int64, roleName RoleName) (bool, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrRoleNotFound
	}

	_, err := r.db.Exec(ctx, `
        INSERT INTO user_roles (user_id, role_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `, userID, roleID)
	return err
}

func (r *Repository) AssignRoleByName(ctx context.Context, userID int64, name RoleName) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var roleID int64
	err := r.db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, string(name)).Scan(&roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoleNotFound
		}
		return err
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `, userID, roleID)
	return err
}

func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotAssigned
	}
	return nil
}

func (r *Repository) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
        SELECT r.id, r.name, r.description, r.created_at, r.updated_at
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1
        ORDER BY r.id
    `, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRole)
}

func (r *Repository) GetUserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	roles, err := r.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}

func (r *Repository) UserHasRole(ctx context.Context, userID int64, roleName RoleName) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM user_roles ur
            JOIN roles r ON ur.role_id = r.id
            WHERE ur.user_id = $1 AND r.name = $2
        )
    `, userID, string(roleName)).Scan(&exists)
	return exists, err
}

func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRole)
}

func scanRole(row pgx.CollectableRow) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}
