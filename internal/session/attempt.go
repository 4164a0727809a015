// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package session

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AttemptPageSize caps audit queries. It is a safety bound against
// unbounded result sets, not a pagination cursor; callers needing more
// rows must supply a more recent since value.
const AttemptPageSize = 100

// LoginAttempt is the audit record of one authentication try. Rows are
// immutable once written, except that Success may be flipped from false
// to true by MarkLoginSuccessful, never the reverse.
type LoginAttempt struct {
	// ID is assigned by the store on insert, monotonically.
	ID int64

	// UserID is set only if the submitted identity resolved to a real
	// user. A failed lookup still produces an attempt with no user.
	UserID *ulid.ULID

	// UsernameOrEmail is the raw identity string as submitted, kept for
	// forensics independent of whether resolution succeeded.
	UsernameOrEmail *string

	// RemoteAddress is absent when unknown, e.g. internal calls.
	RemoteAddress *string

	Success bool

	// AttemptedAt is assigned by the store on insert.
	AttemptedAt time.Time
}

// NewLoginAttempt creates a validated LoginAttempt. At least one of
// userID and usernameOrEmail must be present; supplying neither is a
// contract violation by the caller, not a recoverable authentication
// outcome. ID and AttemptedAt are zero until the store assigns them.
func NewLoginAttempt(userID *ulid.ULID, usernameOrEmail, remoteAddress *string, success bool) (*LoginAttempt, error) {
	if userID == nil && usernameOrEmail == nil {
		return nil, oops.Code("ATTEMPT_NO_IDENTITY").
			Errorf("either a user ID or a username-or-email string is required")
	}
	if userID != nil && userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("ATTEMPT_INVALID_USER").Errorf("user ID cannot be zero when provided")
	}
	return &LoginAttempt{
		UserID:          userID,
		UsernameOrEmail: usernameOrEmail,
		RemoteAddress:   remoteAddress,
		Success:         success,
	}, nil
}

// AttemptRepository manages the append-only login audit trail.
type AttemptRepository interface {
	// Create inserts an attempt and returns the store-assigned ID.
	Create(ctx context.Context, attempt *LoginAttempt) (int64, error)

	// MarkSuccessful flips the attempt's success flag to true.
	// Marking an already-successful attempt is a no-op.
	MarkSuccessful(ctx context.Context, attemptID int64) error

	// ListByUser returns the user's attempts with AttemptedAt strictly
	// after since, newest first, capped at AttemptPageSize.
	ListByUser(ctx context.Context, userID ulid.ULID, since time.Time) ([]*LoginAttempt, error)

	// ListAll is ListByUser across all users. Callers above this layer
	// are responsible for access control.
	ListAll(ctx context.Context, since time.Time) ([]*LoginAttempt, error)
}
