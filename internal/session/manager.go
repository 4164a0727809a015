// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Directory resolves human-readable identifiers to user IDs and checks
// whether an ID belongs to an account. A failed lookup is a normal
// outcome reported through the bool, not an error.
type Directory interface {
	Resolve(ctx context.Context, identifier string) (ulid.ULID, bool, error)
	Exists(ctx context.Context, userID ulid.ULID) (bool, error)
}

// CredentialVerifier checks a plaintext secret against a user's stored
// credential.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, userID ulid.ULID, secret string) (bool, error)
}

// Manager orchestrates authentication and session lifecycle.
type Manager struct {
	directory Directory
	creds     CredentialVerifier
	attempts  AttemptRepository
	sessions  SessionRepository
	tx        Transactor
	logger    *slog.Logger
}

// ManagerOption configures a Manager during construction.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for audit-trail debug logging.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager. All dependencies are required.
func NewManager(directory Directory, creds CredentialVerifier, attempts AttemptRepository, sessions SessionRepository, tx Transactor, opts ...ManagerOption) (*Manager, error) {
	if directory == nil {
		return nil, oops.Errorf("user directory is required")
	}
	if creds == nil {
		return nil, oops.Errorf("credential verifier is required")
	}
	if attempts == nil {
		return nil, oops.Errorf("attempt repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	m := &Manager{
		directory: directory,
		creds:     creds,
		attempts:  attempts,
		sessions:  sessions,
		tx:        tx,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AuthenticateByID authenticates a known user ID and returns the new
// session's ID. Failures are uniform: callers cannot tell an unknown
// user from a wrong password. An ID that belongs to no account is
// audited with a null user reference, the same way an unresolved name
// is, so the attempt row never points at a nonexistent user.
func (m *Manager) AuthenticateByID(ctx context.Context, userID ulid.ULID, password, remoteAddr string) (ulid.ULID, error) {
	exists, err := m.directory.Exists(ctx, userID)
	if err != nil {
		return ulid.ULID{}, oops.Code("STORAGE_FAILURE").
			With("operation", "look up user id").
			Wrap(errors.Join(ErrStorageFailure, err))
	}
	if exists {
		return m.authenticate(ctx, &userID, nil, password, remoteAddr)
	}

	identifier := userID.String()
	return m.authenticate(ctx, nil, &identifier, password, remoteAddr)
}

// AuthenticateByName authenticates by username-or-email string. An
// identifier that resolves to no user is still audited; the caller sees
// the same uniform failure as a wrong password.
func (m *Manager) AuthenticateByName(ctx context.Context, identifier, password, remoteAddr string) (ulid.ULID, error) {
	userID, found, err := m.directory.Resolve(ctx, identifier)
	if err != nil {
		return ulid.ULID{}, oops.Code("STORAGE_FAILURE").
			With("operation", "resolve identifier").
			Wrap(errors.Join(ErrStorageFailure, err))
	}

	var resolved *ulid.ULID
	if found {
		resolved = &userID
	}
	return m.authenticate(ctx, resolved, &identifier, password, remoteAddr)
}

// authenticate is the single path both entry points converge on. It
// verifies the credential, then in one transaction records the attempt
// and, on success, creates the session. The transaction contains no
// external waits.
func (m *Manager) authenticate(ctx context.Context, userID *ulid.ULID, identifier *string, password, remoteAddr string) (ulid.ULID, error) {
	// Verification always runs, with a zero ID standing in for an
	// unresolved identity, so call duration does not reveal whether the
	// identity exists. The zero ID matches no account.
	verifyID := ulid.ULID{}
	if userID != nil {
		verifyID = *userID
	}
	valid, err := m.creds.VerifyCredential(ctx, verifyID, password)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify credential").
			Wrap(err)
	}
	success := valid && userID != nil

	attempt, err := NewLoginAttempt(userID, identifier, optionalString(remoteAddr), success)
	if err != nil {
		return ulid.ULID{}, err
	}

	var sessionID ulid.ULID
	err = m.tx.InTransaction(ctx, func(txCtx context.Context) error {
		attemptID, createErr := m.attempts.Create(txCtx, attempt)
		if createErr != nil {
			return createErr
		}
		attempt.ID = attemptID

		if !success {
			return nil
		}

		sess, sessErr := NewSession(*userID, attemptID)
		if sessErr != nil {
			return sessErr
		}
		if createErr := m.sessions.Create(txCtx, sess); createErr != nil {
			return createErr
		}
		sessionID = sess.ID
		return nil
	})
	if err != nil {
		return ulid.ULID{}, oops.Code("STORAGE_FAILURE").
			With("operation", "record login attempt").
			Wrap(errors.Join(ErrStorageFailure, err))
	}

	if !success {
		m.logger.Debug("authentication failed",
			"attempt_id", attempt.ID,
			"remote_address", remoteAddr,
		)
		return ulid.ULID{}, ErrAuthenticationFailed
	}

	m.logger.Debug("authentication succeeded",
		"attempt_id", attempt.ID,
		"user_id", userID.String(),
		"session_id", sessionID.String(),
	)
	return sessionID, nil
}

// MarkLoginSuccessful flips an attempt's success flag to true, used by
// deferred confirmation flows. Marking an already-successful attempt is
// a no-op with the same observable result.
func (m *Manager) MarkLoginSuccessful(ctx context.Context, attemptID int64) error {
	if err := m.attempts.MarkSuccessful(ctx, attemptID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ATTEMPT_NOT_FOUND").
				With("attempt_id", attemptID).
				Wrap(err)
		}
		return oops.Code("STORAGE_FAILURE").
			With("operation", "mark login successful").
			With("attempt_id", attemptID).
			Wrap(errors.Join(ErrStorageFailure, err))
	}
	return nil
}

// GetLoginAttempts returns one user's attempts newer than since, newest
// first, capped at AttemptPageSize rows.
func (m *Manager) GetLoginAttempts(ctx context.Context, userID ulid.ULID, since time.Time) ([]*LoginAttempt, error) {
	attempts, err := m.attempts.ListByUser(ctx, userID, since)
	if err != nil {
		return nil, oops.Code("STORAGE_FAILURE").
			With("operation", "list login attempts").
			With("user_id", userID.String()).
			Wrap(errors.Join(ErrStorageFailure, err))
	}
	return attempts, nil
}

// GetAllLoginAttempts returns attempts for all users newer than since,
// newest first, capped at AttemptPageSize rows. Access control is the
// caller's responsibility.
func (m *Manager) GetAllLoginAttempts(ctx context.Context, since time.Time) ([]*LoginAttempt, error) {
	attempts, err := m.attempts.ListAll(ctx, since)
	if err != nil {
		return nil, oops.Code("STORAGE_FAILURE").
			With("operation", "list all login attempts").
			Wrap(errors.Join(ErrStorageFailure, err))
	}
	return attempts, nil
}

// GetSession retrieves a session by ID.
func (m *Manager) GetSession(ctx context.Context, sessionID ulid.ULID) (*Session, error) {
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return nil, oops.Code("STORAGE_FAILURE").
			With("operation", "get session").
			Wrap(errors.Join(ErrStorageFailure, err))
	}
	return sess, nil
}

// Logout invalidates a session.
func (m *Manager) Logout(ctx context.Context, sessionID ulid.ULID) error {
	err := m.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("STORAGE_FAILURE").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(errors.Join(ErrStorageFailure, err))
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
