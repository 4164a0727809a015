// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/session"
)

// SessionRepository implements session.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool querier
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool querier) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := queryEngine(ctx, r.pool).Exec(ctx, `
		INSERT INTO sessions (id, user_id, login_attempt_id, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		s.ID.String(),
		s.UserID.String(),
		s.LoginAttemptID,
		s.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", s.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*session.Session, error) {
	row := queryEngine(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, login_attempt_id, created_at
		FROM sessions
		WHERE id = $1
	`, id.String())

	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(session.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_ID_FAILED").
			With("operation", "get session by id").
			With("id", id.String()).
			Wrap(err)
	}
	return s, nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := queryEngine(ctx, r.pool).Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(session.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions for a user. Deleting zero rows is a
// valid state, not an error.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := queryEngine(ctx, r.pool).Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// scanSession scans a single row into a Session. Callers handle
// pgx.ErrNoRows.
func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		idStr     string
		userIDStr string
		attemptID int64
		createdAt time.Time
	)

	err := row.Scan(&idStr, &userIDStr, &attemptID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session row").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &session.Session{
		ID:             id,
		UserID:         userID,
		LoginAttemptID: attemptID,
		CreatedAt:      createdAt,
	}, nil
}
