// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/session"
)

const attemptColumns = `login_attempt_id, user_id, username_or_email, remote_address, success, attempted_at`

// AttemptRepository implements session.AttemptRepository using PostgreSQL.
type AttemptRepository struct {
	pool querier
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool querier) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts an attempt and returns the store-assigned ID. The
// timestamp is assigned by the database so insertion order and timestamp
// order agree per transaction sequence.
func (r *AttemptRepository) Create(ctx context.Context, attempt *session.LoginAttempt) (int64, error) {
	var id int64
	err := queryEngine(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO login_attempts (user_id, username_or_email, remote_address, success)
		VALUES ($1, $2, $3, $4)
		RETURNING login_attempt_id
	`,
		ulidToStringPtr(attempt.UserID),
		attempt.UsernameOrEmail,
		attempt.RemoteAddress,
		attempt.Success,
	).Scan(&id)
	if err != nil {
		return 0, oops.Code("ATTEMPT_CREATE_FAILED").
			With("operation", "insert login attempt").
			Wrap(err)
	}
	return id, nil
}

// MarkSuccessful flips the attempt's success flag to true. Repeating the
// update on an already-successful row changes nothing.
func (r *AttemptRepository) MarkSuccessful(ctx context.Context, attemptID int64) error {
	result, err := queryEngine(ctx, r.pool).Exec(ctx, `
		UPDATE login_attempts SET success = TRUE
		WHERE login_attempt_id = $1
	`, attemptID)
	if err != nil {
		return oops.Code("ATTEMPT_MARK_FAILED").
			With("operation", "mark attempt successful").
			With("attempt_id", attemptID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ATTEMPT_NOT_FOUND").
			With("attempt_id", attemptID).
			Wrap(session.ErrNotFound)
	}
	return nil
}

// ListByUser returns one user's attempts newer than since, newest first,
// capped at session.AttemptPageSize.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID ulid.ULID, since time.Time) ([]*session.LoginAttempt, error) {
	rows, err := queryEngine(ctx, r.pool).Query(ctx, `
		SELECT `+attemptColumns+`
		FROM login_attempts
		WHERE user_id = $1 AND attempted_at > $2
		ORDER BY attempted_at DESC
		LIMIT $3
	`, userID.String(), since, session.AttemptPageSize)
	if err != nil {
		return nil, oops.Code("ATTEMPT_LIST_FAILED").
			With("operation", "list attempts by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// ListAll returns attempts across all users newer than since, newest
// first, capped at session.AttemptPageSize.
func (r *AttemptRepository) ListAll(ctx context.Context, since time.Time) ([]*session.LoginAttempt, error) {
	rows, err := queryEngine(ctx, r.pool).Query(ctx, `
		SELECT `+attemptColumns+`
		FROM login_attempts
		WHERE attempted_at > $1
		ORDER BY attempted_at DESC
		LIMIT $2
	`, since, session.AttemptPageSize)
	if err != nil {
		return nil, oops.Code("ATTEMPT_LIST_FAILED").
			With("operation", "list all attempts").
			Wrap(err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// collectAttempts scans all rows into LoginAttempts.
func collectAttempts(rows pgx.Rows) ([]*session.LoginAttempt, error) {
	var attempts []*session.LoginAttempt
	for rows.Next() {
		var (
			a         session.LoginAttempt
			userIDStr *string
		)
		if err := rows.Scan(&a.ID, &userIDStr, &a.UsernameOrEmail, &a.RemoteAddress, &a.Success, &a.AttemptedAt); err != nil {
			return nil, oops.Code("ATTEMPT_SCAN_FAILED").
				With("operation", "scan attempt row").
				Wrap(err)
		}
		userID, err := parseOptionalULID(userIDStr, "user_id")
		if err != nil {
			return nil, oops.Code("ATTEMPT_SCAN_FAILED").Wrap(err)
		}
		a.UserID = userID
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("ATTEMPT_ROWS_ERROR").
			With("operation", "iterate attempt rows").
			Wrap(err)
	}
	return attempts, nil
}
