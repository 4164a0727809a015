// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package user

import "errors"

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")
