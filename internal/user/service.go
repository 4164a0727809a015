// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package user

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when a user doesn't exist, so the
// response time of credential checks does not reveal whether the account
// is real. This is NOT a credential; it never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing consistency, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides account operations. It also implements the directory
// and credential-verification interfaces consumed by the session manager.
type Service struct {
	users  Repository
	hasher PasswordHasher
}

// NewService creates a user Service.
func NewService(users Repository, hasher PasswordHasher) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Service{users: users, hasher: hasher}, nil
}

// Create makes a new account with the given name, email, and password.
// Returns the new user's ID.
func (s *Service) Create(ctx context.Context, name, email, password string) (ulid.ULID, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	u, err := NewUser(name, email, hash)
	if err != nil {
		return ulid.ULID{}, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		return ulid.ULID{}, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("name", name).
			Wrap(err)
	}
	return u.ID, nil
}

// Get retrieves a user by ID.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByName retrieves a user by account name.
func (s *Service) GetByName(ctx context.Context, name string) (*User, error) {
	return s.users.GetByName(ctx, name)
}

// GetByEmail retrieves a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

// Edit applies metadata changes to a user.
func (s *Service) Edit(ctx context.Context, id ulid.ULID, md Metadata) error {
	if md.Name != nil {
		if err := ValidateName(*md.Name); err != nil {
			return err
		}
	}
	if md.Email != nil {
		if err := ValidateEmail(*md.Email); err != nil {
			return err
		}
	}
	return s.users.UpdateMetadata(ctx, id, md)
}

// MarkVerified marks a user's email as verified.
func (s *Service) MarkVerified(ctx context.Context, id ulid.ULID) error {
	return s.users.SetVerified(ctx, id, true)
}

// MarkActive marks the user active, effectively un-deleting them.
func (s *Service) MarkActive(ctx context.Context, id ulid.ULID) error {
	return s.users.SetActive(ctx, id, true)
}

// MarkInactive marks the user inactive, effectively deleting them. The
// ID is never reused; the row stays for audit references.
func (s *Service) MarkInactive(ctx context.Context, id ulid.ULID) error {
	return s.users.SetActive(ctx, id, false)
}

// ChangePassword replaces a user's password with a freshly hashed one.
func (s *Service) ChangePassword(ctx context.Context, id ulid.ULID, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

// Exists reports whether the ID belongs to an account. Like Resolve, an
// unknown ID is a normal outcome, not an error.
func (s *Service) Exists(ctx context.Context, userID ulid.ULID) (bool, error) {
	_, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code("USER_RESOLVE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return true, nil
}

// Resolve maps a username-or-email string to a user ID. A failed lookup
// is a normal outcome reported through the bool, not an error.
func (s *Service) Resolve(ctx context.Context, identifier string) (ulid.ULID, bool, error) {
	var u *User
	var err error
	if strings.Contains(identifier, "@") {
		u, err = s.users.GetByEmail(ctx, identifier)
	} else {
		u, err = s.users.GetByName(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, false, nil
		}
		return ulid.ULID{}, false, oops.Code("USER_RESOLVE_FAILED").
			With("operation", "resolve identifier").
			Wrap(err)
	}
	return u.ID, true, nil
}

// VerifyCredential checks a plaintext secret against the user's stored
// hash. Unknown and inactive users verify against a dummy hash so the
// call's duration does not distinguish the cause of a mismatch.
func (s *Service) VerifyCredential(ctx context.Context, userID ulid.ULID, secret string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_, _ = s.hasher.Verify(secret, dummyPasswordHash) //nolint:errcheck // timing padding only
			return false, nil
		}
		return false, oops.Code("USER_VERIFY_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(secret, u.PasswordHash)
	if err != nil {
		return false, oops.Code("USER_VERIFY_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !u.Active {
		return false, nil
	}
	return valid, nil
}
