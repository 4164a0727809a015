// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

// Package session provides authentication, the login audit trail, and
// session lifecycle for PageKeep.
//
// # Domain Types
//
// Domain types (LoginAttempt, Session) should be created using their
// constructors:
//   - NewLoginAttempt - validates that at least one identity input is present
//   - NewSession - validates the owning user and authorizing attempt
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types.
//
// # Manager
//
// The Manager orchestrates authentication: it resolves the identity,
// verifies the credential, and records the attempt and any resulting
// session in a single database transaction. Every authentication call
// produces exactly one LoginAttempt row, whether or not it succeeds.
// Callers observe a single uniform failure for unknown identities and
// wrong passwords.
package session
