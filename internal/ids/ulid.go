// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

// Package ids generates the ULIDs used to identify users and sessions.
// IDs from one process are strictly ordered; the monotonic entropy
// source is shared and mutex-guarded so concurrent logins never collide.
package ids

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns the next identifier.
func NewULID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ParseULID parses the canonical 26-character string form.
func ParseULID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invalid ULID %q: %w", s, err)
	}
	return id, nil
}
