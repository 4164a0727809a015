// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/ids"
	"github.com/pagekeep/pagekeep/internal/session"
	"github.com/pagekeep/pagekeep/pkg/errutil"
)

func strPtr(s string) *string { return &s }

func TestAttemptRepository_Create(t *testing.T) {
	ctx := context.Background()
	userID := ids.NewULID()

	t.Run("returns the store-assigned ID", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		attempt, err := session.NewLoginAttempt(&userID, strPtr("squirrelbird"), strPtr("10.0.0.1"), false)
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO login_attempts`).
			WithArgs(strPtr(userID.String()), strPtr("squirrelbird"), strPtr("10.0.0.1"), false).
			WillReturnRows(pgxmock.NewRows([]string{"login_attempt_id"}).AddRow(int64(42)))

		repo := NewAttemptRepository(mock)
		id, err := repo.Create(ctx, attempt)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("unresolved identity inserts a NULL user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		attempt, err := session.NewLoginAttempt(nil, strPtr("ghost"), nil, false)
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO login_attempts`).
			WithArgs((*string)(nil), strPtr("ghost"), (*string)(nil), false).
			WillReturnRows(pgxmock.NewRows([]string{"login_attempt_id"}).AddRow(int64(1)))

		repo := NewAttemptRepository(mock)
		id, err := repo.Create(ctx, attempt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		attempt, err := session.NewLoginAttempt(&userID, nil, nil, false)
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO login_attempts`).
			WillReturnError(errors.New("connection refused"))

		repo := NewAttemptRepository(mock)
		_, err = repo.Create(ctx, attempt)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "ATTEMPT_CREATE_FAILED")
	})
}

func TestAttemptRepository_MarkSuccessful(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`UPDATE login_attempts SET success = TRUE`).
			WithArgs(int64(42)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewAttemptRepository(mock)
		require.NoError(t, repo.MarkSuccessful(ctx, 42))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("zero rows means the attempt does not exist", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`UPDATE login_attempts SET success = TRUE`).
			WithArgs(int64(9999)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewAttemptRepository(mock)
		err = repo.MarkSuccessful(ctx, 9999)
		require.ErrorIs(t, err, session.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ATTEMPT_NOT_FOUND")
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`UPDATE login_attempts SET success = TRUE`).
			WillReturnError(errors.New("connection refused"))

		repo := NewAttemptRepository(mock)
		err = repo.MarkSuccessful(ctx, 42)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "ATTEMPT_MARK_FAILED")
	})
}

func TestAttemptRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	userID := ids.NewULID()
	since := time.Now().Add(-time.Hour)

	t.Run("returns rows newest first with the page cap", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		now := time.Now()
		rows := pgxmock.NewRows([]string{
			"login_attempt_id", "user_id", "username_or_email", "remote_address", "success", "attempted_at",
		}).
			AddRow(int64(2), strPtr(userID.String()), strPtr("squirrelbird"), strPtr("10.0.0.1"), true, now).
			AddRow(int64(1), strPtr(userID.String()), strPtr("squirrelbird"), (*string)(nil), false, now.Add(-time.Minute))

		mock.ExpectQuery(`SELECT (.+) FROM login_attempts`).
			WithArgs(userID.String(), since, session.AttemptPageSize).
			WillReturnRows(rows)

		repo := NewAttemptRepository(mock)
		attempts, err := repo.ListByUser(ctx, userID, since)
		require.NoError(t, err)
		require.Len(t, attempts, 2)
		assert.Equal(t, int64(2), attempts[0].ID)
		require.NotNil(t, attempts[0].UserID)
		assert.Equal(t, userID, *attempts[0].UserID)
		assert.Nil(t, attempts[1].RemoteAddress)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("no rows yields an empty slice", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT (.+) FROM login_attempts`).
			WithArgs(userID.String(), since, session.AttemptPageSize).
			WillReturnRows(pgxmock.NewRows([]string{
				"login_attempt_id", "user_id", "username_or_email", "remote_address", "success", "attempted_at",
			}))

		repo := NewAttemptRepository(mock)
		attempts, err := repo.ListByUser(ctx, userID, since)
		require.NoError(t, err)
		assert.Empty(t, attempts)
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT (.+) FROM login_attempts`).
			WillReturnError(errors.New("connection refused"))

		repo := NewAttemptRepository(mock)
		_, err = repo.ListByUser(ctx, userID, since)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "ATTEMPT_LIST_FAILED")
	})
}

func TestAttemptRepository_ListAll(t *testing.T) {
	ctx := context.Background()
	since := time.Now().Add(-time.Hour)

	t.Run("returns rows across users", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		userID := ids.NewULID()
		now := time.Now()
		rows := pgxmock.NewRows([]string{
			"login_attempt_id", "user_id", "username_or_email", "remote_address", "success", "attempted_at",
		}).
			AddRow(int64(2), strPtr(userID.String()), (*string)(nil), (*string)(nil), true, now).
			AddRow(int64(1), (*string)(nil), strPtr("ghost"), strPtr("10.0.0.2"), false, now.Add(-time.Minute))

		mock.ExpectQuery(`SELECT (.+) FROM login_attempts`).
			WithArgs(since, session.AttemptPageSize).
			WillReturnRows(rows)

		repo := NewAttemptRepository(mock)
		attempts, err := repo.ListAll(ctx, since)
		require.NoError(t, err)
		require.Len(t, attempts, 2)
		assert.NotNil(t, attempts[0].UserID)
		assert.Nil(t, attempts[1].UserID, "unresolved identity rows keep a NULL user")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("malformed stored user ID is a scan failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"login_attempt_id", "user_id", "username_or_email", "remote_address", "success", "attempted_at",
		}).AddRow(int64(1), strPtr("not-a-ulid"), (*string)(nil), (*string)(nil), false, time.Now())

		mock.ExpectQuery(`SELECT (.+) FROM login_attempts`).
			WithArgs(since, session.AttemptPageSize).
			WillReturnRows(rows)

		repo := NewAttemptRepository(mock)
		_, err = repo.ListAll(ctx, since)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "ATTEMPT_SCAN_FAILED")
	})
}
