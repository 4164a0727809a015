// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

// Package postgres implements user persistence using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/user"
)

// poolIface abstracts *pgxpool.Pool so the repository can be tested with
// pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		u.ID.String(),
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Active,
		u.Verified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("name", u.Name).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, is_active, is_verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id.String())

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(user.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return u, nil
}

// GetByName retrieves a user by account name (case-insensitive).
func (r *UserRepository) GetByName(ctx context.Context, name string) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, is_active, is_verified, created_at, updated_at
		FROM users
		WHERE LOWER(name) = LOWER($1)
	`, name)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("name", name).
			Wrap(user.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_NAME_FAILED").
			With("operation", "get user by name").
			Wrap(err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, is_active, is_verified, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(user.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return u, nil
}

// UpdateMetadata applies the non-nil fields of md to the user.
func (r *UserRepository) UpdateMetadata(ctx context.Context, id ulid.ULID, md user.Metadata) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			updated_at = $4
		WHERE id = $1
	`, id.String(), md.Name, md.Email, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user metadata").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(user.ErrNotFound)
	}
	return nil
}

// SetVerified marks the user's email as verified or unverified.
func (r *UserRepository) SetVerified(ctx context.Context, id ulid.ULID, verified bool) error {
	return r.setFlag(ctx, id, "is_verified", verified)
}

// SetActive marks the user active or inactive.
func (r *UserRepository) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	return r.setFlag(ctx, id, "is_active", active)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(user.ErrNotFound)
	}
	return nil
}

// setFlag updates a single boolean column. The column name is always one
// of the two constants passed by SetVerified/SetActive, never user input.
func (r *UserRepository) setFlag(ctx context.Context, id ulid.ULID, column string, value bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET `+column+` = $2, updated_at = $3 WHERE id = $1`,
		id.String(), value, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update "+column).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(user.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User. Callers handle pgx.ErrNoRows.
func scanUser(row pgx.Row) (*user.User, error) {
	var (
		idStr     string
		name      string
		email     string
		hash      string
		active    bool
		verified  bool
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&idStr, &name, &email, &hash, &active, &verified, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user row").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &user.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Active:       active,
		Verified:     verified,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
