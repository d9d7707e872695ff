package goAuthClient

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAuthClient/api"
)

// User is the authenticated identity.
type User = api.User

// Credentials are the login form fields.
type Credentials struct {
	Email    string
	Password string
}

// RegisterData are the registration form fields.
type RegisterData struct {
	Name     string
	Email    string
	Password string
}

// Result is the outcome of a user-initiated session operation. Error is a
// display-ready message and is empty on success.
type Result struct {
	Success bool
	Error   string
}

func failure(msg string) Result {
	return Result{Error: msg}
}

// State is a point-in-time view of the session.
//
// Loading is true until the first restoration settles and while a login or
// register call is in flight. Restored flips to true exactly once.
type State struct {
	Identity *User
	Loading  bool
	Restored bool
	// Version increases with every visible change of the Store.
	Version uint64
}

// Authenticated reports whether an identity is present.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

func sameState(a, b State) bool {
	if a.Loading != b.Loading || a.Restored != b.Restored {
		return false
	}
	if a.Identity == nil || b.Identity == nil {
		return a.Identity == b.Identity
	}
	return *a.Identity == *b.Identity
}

// AuthAPI is the remote auth API consumed by a Store. [*api.Client]
// implements it.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	DevLogin(ctx context.Context) (*api.AuthResponse, error)
	Verify(ctx context.Context, token string) (*api.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Navigator performs navigation side effects. Repeated pushes to the same
// path must be harmless.
type Navigator interface {
	Push(path string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(path string)

// Push implements [Navigator].
func (f NavigatorFunc) Push(path string) { f(path) }

type nopNavigator struct{}

func (nopNavigator) Push(string) {}

// QueryParams reads query-string values. url.Values satisfies it.
type QueryParams interface {
	Get(key string) string
}

// ResetTokenFromQuery returns the password-reset token carried in the
// "token" query parameter.
func ResetTokenFromQuery(q QueryParams) (string, bool) {
	if q == nil {
		return "", false
	}
	token := strings.TrimSpace(q.Get("token"))
	return token, token != ""
}
