package api

import (
	"encoding/json"
	"strings"
)

// User is the profile record returned by the auth API.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Role  string `json:"role,omitempty" yaml:"role,omitempty"`
}

// Clone returns a copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// AuthResponse is the body returned by login, register and dev-login.
//
// Success is optional on the wire: some deployments only send it on failure.
type AuthResponse struct {
	Success *bool  `json:"success,omitempty"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// Complete reports whether the response can establish a session: not marked
// as failed, and carrying both a token and a user with an id.
func (r *AuthResponse) Complete() bool {
	if r == nil {
		return false
	}
	if r.Success != nil && !*r.Success {
		return false
	}
	return r.Token != "" && r.User != nil && r.User.ID != ""
}

// VerifyResponse is the body returned by GET /auth/verify.
type VerifyResponse struct {
	Success *bool  `json:"success,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is a generic acknowledgement body.
type MessageResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorBody is the decoded body of a non-2xx response.
//
// Detail is kept raw: servers send either a string or a list of
// validation entries carrying "msg".
type ErrorBody struct {
	Message string          `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Text returns the first non-empty human-readable message in the body.
func (b *ErrorBody) Text() string {
	if b == nil {
		return ""
	}
	if msg := strings.TrimSpace(b.Message); msg != "" {
		return msg
	}
	if msg := detailText(b.Detail); msg != "" {
		return msg
	}
	return strings.TrimSpace(b.Error)
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		for _, e := range entries {
			if msg := strings.TrimSpace(e.Msg); msg != "" {
				return msg
			}
		}
	}

	return ""
}
