// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package session_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/ids"
	"github.com/pagekeep/pagekeep/internal/session"
	"github.com/pagekeep/pagekeep/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	userID := ids.NewULID()

	t.Run("valid session gets a fresh ID", func(t *testing.T) {
		s, err := session.NewSession(userID, 42)
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, s.ID)
		assert.Equal(t, userID, s.UserID)
		assert.Equal(t, int64(42), s.LoginAttemptID)
		assert.False(t, s.CreatedAt.IsZero())
	})

	t.Run("IDs are unique", func(t *testing.T) {
		a, err := session.NewSession(userID, 1)
		require.NoError(t, err)
		b, err := session.NewSession(userID, 1)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("zero user ID is rejected", func(t *testing.T) {
		s, err := session.NewSession(ulid.ULID{}, 1)
		assert.Nil(t, s)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")
	})

	t.Run("non-positive attempt ID is rejected", func(t *testing.T) {
		for _, attemptID := range []int64{0, -1} {
			s, err := session.NewSession(userID, attemptID)
			assert.Nil(t, s)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "SESSION_INVALID_ATTEMPT")
		}
	})
}
