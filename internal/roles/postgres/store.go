// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package postgres provides a role source backed by PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/rolegate/rolegate/internal/access"
	"github.com/rolegate/rolegate/internal/roles"
)

var _ roles.Source = (*Store)(nil)

// poolIface is the subset of pgxpool.Pool the store needs. pgxmock
// implements it for unit tests.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store reads role and permission-set definitions from PostgreSQL.
// Declaration order is the position column, not insertion order.
type Store struct {
	pool poolIface
}

// NewStore wraps an existing pool.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool against dsn, retrying with fibonacci backoff so a
// database still starting up does not fail the caller immediately.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_UNREACHABLE").Wrap(err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Roles returns all roles with their permissions and set references,
// ordered by the roles.position column.
func (s *Store) Roles(ctx context.Context) ([]access.Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, description FROM roles ORDER BY position`)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").With("operation", "list roles").Wrap(err)
	}
	defer rows.Close()

	var roles []access.Role
	for rows.Next() {
		var r access.Role
		if err := rows.Scan(&r.Name, &r.Description); err != nil {
			return nil, oops.Code("DB_SCAN_FAILED").With("operation", "scan role row").Wrap(err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").With("operation", "iterate roles").Wrap(err)
	}

	for i := range roles {
		perms, err := s.rolePermissions(ctx, roles[i].Name)
		if err != nil {
			return nil, err
		}
		sets, err := s.rolePermissionSets(ctx, roles[i].Name)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
		roles[i].PermissionSets = sets
	}
	return roles, nil
}

func (s *Store) rolePermissions(ctx context.Context, role string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT permission FROM role_permissions WHERE role_name = $1 ORDER BY position`,
		role)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list role permissions").
			With("role", role).
			Wrap(err)
	}
	defer rows.Close()
	return scanStrings(rows, "scan role permission row")
}

func (s *Store) rolePermissionSets(ctx context.Context, role string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT set_name FROM role_permission_sets WHERE role_name = $1 ORDER BY position`,
		role)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list role permission sets").
			With("role", role).
			Wrap(err)
	}
	defer rows.Close()
	return scanStrings(rows, "scan role permission set row")
}

// PermissionSets returns every named set with members ordered by position.
func (s *Store) PermissionSets(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT set_name, permission FROM permission_sets ORDER BY set_name, position`)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").With("operation", "list permission sets").Wrap(err)
	}
	defer rows.Close()

	sets := make(map[string][]string)
	for rows.Next() {
		var name, perm string
		if err := rows.Scan(&name, &perm); err != nil {
			return nil, oops.Code("DB_SCAN_FAILED").With("operation", "scan permission set row").Wrap(err)
		}
		sets[name] = append(sets[name], perm)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").With("operation", "iterate permission sets").Wrap(err)
	}
	return sets, nil
}

// Replace swaps the stored definitions for the given ones in a single
// transaction. Positions record declaration order for later reads.
func (s *Store) Replace(ctx context.Context, roles []access.Role, sets map[string][]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("DB_TX_FAILED").With("operation", "begin replace").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, table := range []string{"permission_sets", "role_permission_sets", "role_permissions", "roles"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return oops.Code("DB_EXEC_FAILED").With("operation", "clear "+table).Wrap(err)
		}
	}

	for i, r := range roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO roles (name, description, position) VALUES ($1, $2, $3)`,
			r.Name, r.Description, i); err != nil {
			return mapInsertError(err, "insert role", r.Name)
		}
		for j, p := range r.Permissions {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_name, permission, position) VALUES ($1, $2, $3)`,
				r.Name, p, j); err != nil {
				return mapInsertError(err, "insert role permission", r.Name)
			}
		}
		for j, set := range r.PermissionSets {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permission_sets (role_name, set_name, position) VALUES ($1, $2, $3)`,
				r.Name, set, j); err != nil {
				return mapInsertError(err, "insert role permission set", r.Name)
			}
		}
	}

	for name, members := range sets {
		for j, p := range members {
			if _, err := tx.Exec(ctx,
				`INSERT INTO permission_sets (set_name, permission, position) VALUES ($1, $2, $3)`,
				name, p, j); err != nil {
				return mapInsertError(err, "insert permission set member", name)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("DB_TX_FAILED").With("operation", "commit replace").Wrap(err)
	}
	return nil
}

func mapInsertError(err error, operation, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.Code("DUPLICATE_DEFINITION").
			With("operation", operation).
			With("name", name).
			Wrap(err)
	}
	return oops.Code("DB_EXEC_FAILED").
		With("operation", operation).
		With("name", name).
		Wrap(err)
}

func scanStrings(rows pgx.Rows, operation string) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, oops.Code("DB_SCAN_FAILED").With("operation", operation).Wrap(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").With("operation", operation).Wrap(err)
	}
	return out, nil
}
