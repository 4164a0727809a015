// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/pkg/errutil"
)

func TestArgon2idHasher_HashAndVerify(t *testing.T) {
	hasher := NewArgon2idHasher()

	t.Run("round trip", func(t *testing.T) {
		hash, err := hasher.Hash("correct-horse-battery")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), "PHC format prefix")

		ok, err := hasher.Verify("correct-horse-battery", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password does not match", func(t *testing.T) {
		hash, err := hasher.Hash("correct-horse-battery")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrong-horse-battery", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		a, err := hasher.Hash("correct-horse-battery")
		require.NoError(t, err)
		b, err := hasher.Hash("correct-horse-battery")
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "salts are random")
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.ErrorIs(t, err, ErrEmptyPassword)
	})
}

func TestArgon2idHasher_VerifyRejectsBadHashes(t *testing.T) {
	hasher := NewArgon2idHasher()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"garbage", "not-a-hash"},
		{"wrong part count", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad version", "$argon2id$vX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$nope$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
		{"bad hash encoding", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Verify("password", tt.hash)
			assert.False(t, ok)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "USER_INVALID_HASH")
		})
	}
}
