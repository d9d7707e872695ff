package goAuthClient

import "errors"

var (
	// ErrStoreClosed is returned by Restore after Close.
	ErrStoreClosed = errors.New("session store closed")
	// ErrAPIRequired is returned by Build when no auth API is configured.
	ErrAPIRequired = errors.New("auth api client or base url required")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Messages surfaced in [Result.Error] when the server did not provide one.
const (
	MsgLoginFailed          = "Login failed"
	MsgRegisterFailed       = "Registration failed"
	MsgSessionExpired       = "Session expired"
	MsgNoSession            = "No active session"
	MsgSaveSessionFailed    = "Unable to save session"
	MsgStoreClosed          = "Session closed"
	MsgEmailRequired        = "Email is required"
	MsgPasswordRequired     = "Password is required"
	MsgNameRequired         = "Name is required"
	MsgResetTokenRequired   = "Reset token is missing"
	MsgForgotPasswordFailed = "Failed to send reset email"
	MsgResetPasswordFailed  = "Failed to reset password"
)
