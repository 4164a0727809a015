// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/pkg/errutil"
)

func TestMigrateDatabaseURL_FlagWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env:5432/pagekeep")

	cmd := NewMigrateCmd()
	require.NoError(t, cmd.Flags().Set("database-url", "postgres://flag:5432/pagekeep"))

	url, err := migrateDatabaseURL(cmd)
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag:5432/pagekeep", url)
}

func TestMigrateDatabaseURL_EnvFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env:5432/pagekeep")

	cmd := NewMigrateCmd()

	url, err := migrateDatabaseURL(cmd)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env:5432/pagekeep", url)
}

func TestMigrateDatabaseURL_Missing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := NewMigrateCmd()

	_, err := migrateDatabaseURL(cmd)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
