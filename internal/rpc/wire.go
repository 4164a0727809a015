// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package rpc

import (
	"encoding/json"
	"errors"

	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/session"
	"github.com/pagekeep/pagekeep/internal/user"
)

// Request is one framed call. Params are decoded per method.
type Request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response carries either a result or a tagged failure, never both.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is the tagged failure shape on the wire.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Wire error codes.
const (
	CodeAuthenticationFailed = "authentication_failed"
	CodeUserNotFound         = "user_not_found"
	CodeNotFound             = "not_found"
	CodeStorageFailure       = "storage_failure"
	CodeProtocolMismatch     = "protocol_mismatch"
	CodeBadRequest           = "bad_request"
	CodeInternal             = "internal"
)

// validationCodes are oops codes raised by entity constructors and input
// checks; they surface as bad_request rather than internal.
var validationCodes = map[string]struct{}{
	"USER_INVALID_NAME":       {},
	"USER_INVALID_EMAIL":      {},
	"USER_INVALID_HASH":       {},
	"USER_EMPTY_PASSWORD":     {},
	"ATTEMPT_NO_IDENTITY":     {},
	"ATTEMPT_INVALID_USER":    {},
	"SESSION_INVALID_USER":    {},
	"SESSION_INVALID_ATTEMPT": {},
}

// toWireError maps a service error onto the wire taxonomy. The uniform
// authentication failure is preserved as-is; the message never says
// whether the identity or the password was wrong.
func toWireError(err error) *WireError {
	if errors.Is(err, session.ErrAuthenticationFailed) {
		return &WireError{Code: CodeAuthenticationFailed, Message: "invalid username or password"}
	}
	if errors.Is(err, user.ErrNotFound) {
		return &WireError{Code: CodeUserNotFound, Message: "user not found"}
	}
	if errors.Is(err, session.ErrNotFound) {
		return &WireError{Code: CodeNotFound, Message: "not found"}
	}
	if errors.Is(err, session.ErrStorageFailure) {
		return &WireError{Code: CodeStorageFailure, Message: "storage failure"}
	}

	if oopsErr, ok := oops.AsOops(err); ok {
		// Code() reports the deepest code in the chain, so only codes
		// raised at the failure site itself are matched here. Anything
		// wrapped (storage, not-found) is handled by the sentinel
		// checks above.
		code, _ := oopsErr.Code().(string)
		if _, isValidation := validationCodes[code]; isValidation {
			return &WireError{Code: CodeBadRequest, Message: oopsErr.Error()}
		}
		switch code {
		case "BAD_REQUEST":
			return &WireError{Code: CodeBadRequest, Message: oopsErr.Error()}
		case "STORAGE_FAILURE", "TX_BEGIN_FAILED", "TX_COMMIT_FAILED":
			return &WireError{Code: CodeStorageFailure, Message: "storage failure"}
		case "PROTOCOL_MISMATCH":
			return &WireError{Code: CodeProtocolMismatch, Message: oopsErr.Error()}
		}
	}

	return &WireError{Code: CodeInternal, Message: "internal error"}
}

// badRequest reports invalid caller input that never reached a service.
func badRequest(msg string) error {
	return oops.Code("BAD_REQUEST").Errorf("%s", msg)
}

func badRequestErr(msg string, err error) error {
	return oops.Code("BAD_REQUEST").With("detail", msg).Wrap(err)
}
