package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps failures that happened before a response was read.
	ErrTransport = errors.New("auth api transport failure")
	// ErrRejected is matched by every non-2xx response.
	ErrRejected = errors.New("auth api rejected request")
	// ErrMalformedResponse is returned when a 2xx body lacks required fields.
	ErrMalformedResponse = errors.New("auth api malformed response")
	// ErrMissingToken is returned when Verify is called without a token.
	ErrMissingToken = errors.New("missing bearer token")
)

// Error describes a failed call to the auth API.
type Error struct {
	Op         string
	StatusCode int
	Body       ErrorBody
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		if msg := e.Body.Text(); msg != "" {
			return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, msg)
		}
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthorized reports whether the server rejected the caller's credentials
// or token (401 or 403).
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ErrorMessage extracts a human-readable message from err.
//
// A server-provided message (message, then detail, then error) wins; anything
// else, including transport and decode failures, yields fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if msg := apiErr.Body.Text(); msg != "" {
			return msg
		}
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401/403 from the auth API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
