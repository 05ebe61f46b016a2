package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/config"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Service provides RBAC helpers backed by SQL.
type Service struct {
	DB *sql.DB
}

func (s Service) EnsureActor(ctx context.Context, tx *sql.Tx, actorID string) error {
	if actorID == "" {
		return errors.New("actor_id required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO actors(id, created_at) VALUES (?,?)`, actorID, now)
	return err
}

// SyncConfig replaces the role and permission tables with the config's RBAC block.
// Role assignments to actors are preserved.
func (s Service) SyncConfig(ctx context.Context, tx *sql.Tx, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config nil")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions`); err != nil {
		return err
	}
	for roleID, role := range cfg.RBAC.Roles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roles(id, description) VALUES (?,?)
ON CONFLICT(id) DO UPDATE SET description=excluded.description`, roleID, nullable(role.Description)); err != nil {
			return err
		}
		for _, perm := range role.Permissions {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO permissions(id) VALUES (?)`, perm); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO role_permissions(role_id, permission_id) VALUES (?,?)`, roleID, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s Service) AssignRole(ctx context.Context, tx *sql.Tx, actorID, roleID string) error {
	if err := s.EnsureActor(ctx, tx, actorID); err != nil {
		return err
	}
	var n int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM roles WHERE id=?`, roleID).Scan(&n)
	if err == sql.ErrNoRows {
		return fmt.Errorf("unknown role %s", roleID)
	}
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO actor_roles(actor_id, role_id) VALUES (?,?)`, actorID, roleID)
	return err
}

func (s Service) UnassignRole(ctx context.Context, tx *sql.Tx, actorID, roleID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM actor_roles WHERE actor_id=? AND role_id=?`, actorID, roleID)
	return err
}

// Configured reports whether any roles are defined. With no roles, permission
// checks are skipped entirely.
func (s Service) Configured(ctx context.Context, tx *sql.Tx) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM roles`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s Service) ActorHasPermission(ctx context.Context, tx *sql.Tx, actorID, perm string) (bool, error) {
	row := tx.QueryRowContext(ctx, `
SELECT 1 FROM actor_roles ar
JOIN role_permissions rp ON rp.role_id=ar.role_id
WHERE ar.actor_id=? AND rp.permission_id=? LIMIT 1`,
		actorID, perm)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s Service) ActorRoles(ctx context.Context, tx *sql.Tx, actorID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT role_id FROM actor_roles WHERE actor_id=?`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func (s Service) ActorPermissions(ctx context.Context, tx *sql.Tx, actorID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
SELECT DISTINCT rp.permission_id
FROM actor_roles ar
JOIN role_permissions rp ON rp.role_id=ar.role_id
WHERE ar.actor_id=?`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
