// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package session

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/ids"
)

// Session is proof of authentication, tied to the owning user and to the
// login attempt that authorized its creation. Sessions are created only
// inside the atomic login transaction and destroyed by explicit logout.
type Session struct {
	ID             ulid.ULID
	UserID         ulid.ULID
	LoginAttemptID int64
	CreatedAt      time.Time
}

// NewSession creates a validated Session with a fresh ID.
func NewSession(userID ulid.ULID, loginAttemptID int64) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if loginAttemptID <= 0 {
		return nil, oops.Code("SESSION_INVALID_ATTEMPT").
			With("login_attempt_id", loginAttemptID).
			Errorf("login attempt ID must be positive")
	}
	return &Session{
		ID:             ids.NewULID(),
		UserID:         userID,
		LoginAttemptID: loginAttemptID,
		CreatedAt:      time.Now(),
	}, nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error
}

// Transactor runs a function inside a single database transaction. All
// repository calls made with the context it passes to fn join that
// transaction; fn returning an error rolls everything back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
