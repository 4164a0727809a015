// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package session

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAuthenticationFailed is the uniform failure for every unsuccessful
// authentication: unknown identity and wrong password are
// indistinguishable to the caller. It is constructed here, once, and
// never anywhere else; building separate errors for the two causes would
// leak which one occurred. Plain sentinel, not an oops error: errors.Is
// against it must match only this value.
var ErrAuthenticationFailed = errors.New("invalid username or password")

// ErrStorageFailure tags infrastructure failures in the error chain so
// the transport can tell retriable storage trouble apart from bad input
// without inspecting wrapped codes.
var ErrStorageFailure = errors.New("storage failure")
