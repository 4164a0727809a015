// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

// Package user provides user accounts and credential verification.
//
// The Service coordinates account operations and also implements the two
// narrow interfaces the session manager depends on: Directory (resolving
// a username-or-email string to an account) and CredentialStore
// (verifying a secret against the stored hash). Password hashes are
// argon2id in PHC string format.
package user
