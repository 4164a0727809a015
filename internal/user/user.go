// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/ids"
)

// Name validation constraints.
const (
	MinNameLength = 3
	MaxNameLength = 30
)

// nameRegex matches account names that start with a letter and contain
// only letters, numbers, underscores, and hyphens.
var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// User represents a user account.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Metadata holds optional account fields for edits. Nil fields are left
// unchanged.
type Metadata struct {
	Name  *string
	Email *string
}

// NewUser creates a validated User with a fresh ID. The account starts
// active and unverified.
func NewUser(name, email, passwordHash string) (*User, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ids.NewULID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateName validates an account name.
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("USER_INVALID_NAME").Errorf("name cannot be empty")
	}
	if len(name) < MinNameLength {
		return oops.Code("USER_INVALID_NAME").
			With("min", MinNameLength).
			Errorf("name must be at least %d characters", MinNameLength)
	}
	if len(name) > MaxNameLength {
		return oops.Code("USER_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return oops.Code("USER_INVALID_NAME").
			Errorf("name must start with a letter and contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail validates an email address. Deliverability is not
// checked; this only rejects obviously malformed input.
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return oops.Code("USER_INVALID_EMAIL").
			With("email", email).
			Errorf("malformed email address")
	}
	return nil
}

// Repository manages user persistence.
type Repository interface {
	// Create stores a new user.
	Create(ctx context.Context, u *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByName retrieves a user by account name (case-insensitive).
	GetByName(ctx context.Context, name string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateMetadata applies the non-nil fields of md to the user.
	UpdateMetadata(ctx context.Context, id ulid.ULID, md Metadata) error

	// SetVerified marks the user's email as verified.
	SetVerified(ctx context.Context, id ulid.ULID, verified bool) error

	// SetActive marks the user active or inactive.
	SetActive(ctx context.Context, id ulid.ULID, active bool) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
