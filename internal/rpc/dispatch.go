// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pagekeep/pagekeep/internal/session"
	"github.com/pagekeep/pagekeep/internal/user"
	"github.com/pagekeep/pagekeep/pkg/errutil"
)

// SessionService is the slice of the session manager the dispatcher
// needs.
type SessionService interface {
	AuthenticateByID(ctx context.Context, userID ulid.ULID, password, remoteAddr string) (ulid.ULID, error)
	AuthenticateByName(ctx context.Context, identifier, password, remoteAddr string) (ulid.ULID, error)
	MarkLoginSuccessful(ctx context.Context, attemptID int64) error
	GetLoginAttempts(ctx context.Context, userID ulid.ULID, since time.Time) ([]*session.LoginAttempt, error)
	GetAllLoginAttempts(ctx context.Context, since time.Time) ([]*session.LoginAttempt, error)
	GetSession(ctx context.Context, sessionID ulid.ULID) (*session.Session, error)
	Logout(ctx context.Context, sessionID ulid.ULID) error
}

// UserService is the slice of the user service the dispatcher needs.
type UserService interface {
	Create(ctx context.Context, name, email, password string) (ulid.ULID, error)
	Get(ctx context.Context, id ulid.ULID) (*user.User, error)
	GetByName(ctx context.Context, name string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Edit(ctx context.Context, id ulid.ULID, md user.Metadata) error
	ChangePassword(ctx context.Context, id ulid.ULID, newPassword string) error
	MarkVerified(ctx context.Context, id ulid.ULID) error
	MarkActive(ctx context.Context, id ulid.ULID) error
	MarkInactive(ctx context.Context, id ulid.ULID) error
}

// Handler routes decoded calls to the service implementations.
type Handler struct {
	sessions SessionService
	users    UserService
	logger   *slog.Logger
}

// NewHandler creates a Handler. Both services are required.
func NewHandler(sessions SessionService, users UserService, logger *slog.Logger) (*Handler, error) {
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if users == nil {
		return nil, oops.Errorf("user service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, users: users, logger: logger}, nil
}

// Param and result shapes. Times are RFC 3339.

type protocolParams struct {
	ClientVersion *string `json:"client_version,omitempty"`
}

type loginParams struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
	RemoteAddress   string `json:"remote_address,omitempty"`
}

type loginIDParams struct {
	UserID        string `json:"user_id"`
	Password      string `json:"password"`
	RemoteAddress string `json:"remote_address,omitempty"`
}

type loginResult struct {
	SessionID string `json:"session_id"`
}

type sessionIDParams struct {
	SessionID string `json:"session_id"`
}

type attemptIDParams struct {
	LoginAttemptID int64 `json:"login_attempt_id"`
}

type attemptsParams struct {
	UserID string    `json:"user_id,omitempty"`
	Since  time.Time `json:"since"`
}

type attemptDTO struct {
	LoginAttemptID  int64     `json:"login_attempt_id"`
	UserID          *string   `json:"user_id,omitempty"`
	UsernameOrEmail *string   `json:"username_or_email,omitempty"`
	RemoteAddress   *string   `json:"remote_address,omitempty"`
	Success         bool      `json:"success"`
	AttemptedAt     time.Time `json:"attempted_at"`
}

type sessionDTO struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	LoginAttemptID int64     `json:"login_attempt_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type createUserParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userIDParams struct {
	UserID string `json:"user_id"`
}

type userByNameParams struct {
	Name string `json:"name"`
}

type userByEmailParams struct {
	Email string `json:"email"`
}

type editUserParams struct {
	UserID string  `json:"user_id"`
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
}

type changePasswordParams struct {
	UserID      string `json:"user_id"`
	NewPassword string `json:"new_password"`
}

type userDTO struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatch runs one call and produces its response. remoteAddr is the
// connection's peer address, used for the audit trail when the client
// does not supply one.
func (h *Handler) Dispatch(ctx context.Context, req Request, remoteAddr string) Response {
	h.logger.Debug("dispatching method", "method", req.Method, "request_id", req.ID)

	result, err := h.call(ctx, req, remoteAddr)
	if err != nil {
		wireErr := toWireError(err)
		if wireErr.Code == CodeStorageFailure || wireErr.Code == CodeInternal {
			errutil.LogError(h.logger, "method failed", err)
		}
		RecordRequest(req.Method, wireErr.Code)
		return Response{ID: req.ID, Error: wireErr}
	}

	payload, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		errutil.LogError(h.logger, "result encoding failed", marshalErr)
		RecordRequest(req.Method, CodeInternal)
		return Response{ID: req.ID, Error: &WireError{Code: CodeInternal, Message: "internal error"}}
	}
	RecordRequest(req.Method, "ok")
	return Response{ID: req.ID, Result: payload}
}

// call routes the request to its method implementation.
//
//nolint:cyclop // flat method table, one case per RPC method
func (h *Handler) call(ctx context.Context, req Request, remoteAddr string) (any, error) {
	switch req.Method {
	case "protocol":
		return h.protocol(req.Params)
	case "ping":
		return "pong!", nil
	case "time":
		return float64(time.Now().UnixNano()) / float64(time.Second), nil

	case "login":
		var p loginParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		if p.UsernameOrEmail == "" {
			return nil, badRequest("username_or_email is required")
		}
		sessionID, err := h.sessions.AuthenticateByName(ctx, p.UsernameOrEmail, p.Password, orPeer(p.RemoteAddress, remoteAddr))
		if err != nil {
			return nil, err
		}
		return loginResult{SessionID: sessionID.String()}, nil

	case "login_id":
		var p loginIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		userID, err := parseID(p.UserID, "user_id")
		if err != nil {
			return nil, err
		}
		sessionID, err := h.sessions.AuthenticateByID(ctx, userID, p.Password, orPeer(p.RemoteAddress, remoteAddr))
		if err != nil {
			return nil, err
		}
		return loginResult{SessionID: sessionID.String()}, nil

	case "logout":
		var p sessionIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		sessionID, err := parseID(p.SessionID, "session_id")
		if err != nil {
			return nil, err
		}
		return struct{}{}, h.sessions.Logout(ctx, sessionID)

	case "get_session":
		var p sessionIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		sessionID, err := parseID(p.SessionID, "session_id")
		if err != nil {
			return nil, err
		}
		sess, err := h.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return sessionDTO{
			SessionID:      sess.ID.String(),
			UserID:         sess.UserID.String(),
			LoginAttemptID: sess.LoginAttemptID,
			CreatedAt:      sess.CreatedAt,
		}, nil

	case "set_login_success":
		var p attemptIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return struct{}{}, h.sessions.MarkLoginSuccessful(ctx, p.LoginAttemptID)

	case "get_login_attempts":
		var p attemptsParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		userID, err := parseID(p.UserID, "user_id")
		if err != nil {
			return nil, err
		}
		attempts, err := h.sessions.GetLoginAttempts(ctx, userID, p.Since)
		if err != nil {
			return nil, err
		}
		return attemptDTOs(attempts), nil

	case "get_all_login_attempts":
		var p attemptsParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		attempts, err := h.sessions.GetAllLoginAttempts(ctx, p.Since)
		if err != nil {
			return nil, err
		}
		return attemptDTOs(attempts), nil

	case "create_user":
		var p createUserParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		userID, err := h.users.Create(ctx, p.Name, p.Email, p.Password)
		if err != nil {
			return nil, err
		}
		return userIDParams{UserID: userID.String()}, nil

	case "get_user":
		var p userIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		userID, err := parseID(p.UserID, "user_id")
		if err != nil {
			return nil, err
		}
		u, err := h.users.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toUserDTO(u), nil

	case "get_user_by_name":
		var p userByNameParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		u, err := h.users.GetByName(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return toUserDTO(u), nil

	case "get_user_by_email":
		var p userByEmailParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		u, err := h.users.GetByEmail(ctx, p.Email)
		if err != nil {
			return nil, err
		}
		return toUserDTO(u), nil

	case "edit_user":
		var p editUserParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		userID, err := parseID(p.UserID, "user_id")
		if err != nil {
			return nil, err
		}
		return struct{}{}, h.users.Edit(ctx, userID, user.Metadata{Name: p.Name, Email: p.Email})

	case "change_password":
		var p changePasswordParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		userID, err := parseID(p.UserID, "user_id")
		if err != nil {
			return nil, err
		}
		return struct{}{}, h.users.ChangePassword(ctx, userID, p.NewPassword)

	case "verify_user":
		return h.userFlagCall(ctx, req.Params, h.users.MarkVerified)
	case "mark_user_active":
		return h.userFlagCall(ctx, req.Params, h.users.MarkActive)
	case "mark_user_inactive":
		return h.userFlagCall(ctx, req.Params, h.users.MarkInactive)

	default:
		return nil, badRequest("unknown method: " + req.Method)
	}
}

// protocol returns the server protocol version. A client that supplies
// its own version gets a protocol_mismatch failure when the two differ.
func (h *Handler) protocol(params json.RawMessage) (any, error) {
	var p protocolParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ClientVersion != nil && *p.ClientVersion != ProtocolVersion {
		return nil, oops.Code("PROTOCOL_MISMATCH").
			With("client_version", *p.ClientVersion).
			With("server_version", ProtocolVersion).
			Errorf("unsupported protocol version %q", *p.ClientVersion)
	}
	return ProtocolVersion, nil
}

func (h *Handler) userFlagCall(ctx context.Context, params json.RawMessage, fn func(context.Context, ulid.ULID) error) (any, error) {
	var p userIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	userID, err := parseID(p.UserID, "user_id")
	if err != nil {
		return nil, err
	}
	return struct{}{}, fn(ctx, userID)
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return badRequestErr("malformed params", err)
	}
	return nil
}

func parseID(s, field string) (ulid.ULID, error) {
	if s == "" {
		return ulid.ULID{}, badRequest(field + " is required")
	}
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, badRequestErr("invalid "+field, err)
	}
	return id, nil
}

func attemptDTOs(attempts []*session.LoginAttempt) []attemptDTO {
	out := make([]attemptDTO, 0, len(attempts))
	for _, a := range attempts {
		var userID *string
		if a.UserID != nil {
			s := a.UserID.String()
			userID = &s
		}
		out = append(out, attemptDTO{
			LoginAttemptID:  a.ID,
			UserID:          userID,
			UsernameOrEmail: a.UsernameOrEmail,
			RemoteAddress:   a.RemoteAddress,
			Success:         a.Success,
			AttemptedAt:     a.AttemptedAt,
		})
	}
	return out
}

func toUserDTO(u *user.User) userDTO {
	return userDTO{
		UserID:    u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Active:    u.Active,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func orPeer(addr, peer string) string {
	if addr != "" {
		return addr
	}
	return peer
}
