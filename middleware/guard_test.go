package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/api"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenAPI accepts exactly one token.
type tokenAPI struct {
	valid string
	user  *api.User
}

func (a *tokenAPI) Login(_ context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	if req.Password != "pw" {
		return nil, &api.Error{Op: "login", StatusCode: http.StatusUnauthorized, Body: api.ErrorBody{Message: "Invalid credentials"}, Err: api.ErrRejected}
	}
	return &api.AuthResponse{Token: a.valid, User: a.user.Clone()}, nil
}

func (a *tokenAPI) Register(context.Context, api.RegisterRequest) (*api.AuthResponse, error) {
	return nil, errors.New("not implemented")
}

func (a *tokenAPI) DevLogin(context.Context) (*api.AuthResponse, error) {
	return nil, errors.New("not implemented")
}

func (a *tokenAPI) Verify(_ context.Context, token string) (*api.User, error) {
	if token != a.valid {
		return nil, &api.Error{Op: "verify", StatusCode: http.StatusUnauthorized, Err: api.ErrRejected}
	}
	return a.user.Clone(), nil
}

func (a *tokenAPI) ForgotPassword(context.Context, string) error { return nil }

func (a *tokenAPI) ResetPassword(context.Context, string, string) error { return nil }

func newGate(t *testing.T) *Gate {
	t.Helper()
	logger, _ := test.NewNullLogger()
	g, err := New(Options{
		Config: goAuthClient.DefaultConfig(),
		API:    &tokenAPI{valid: "good", user: &api.User{ID: "u1", Name: "Ada"}},
		Logger: logger,
	})
	require.NoError(t, err)
	return g
}

func request(path, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	return r
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := IdentityFromContext(r)
		if ok {
			_, _ = w.Write([]byte("hello " + user.Name))
			return
		}
		_, _ = w.Write([]byte("hello guest"))
	})
}

func TestRequireAuth(t *testing.T) {
	g := newGate(t)
	h := g.RequireAuth(okHandler(t))

	t.Run("valid cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("/dashboard", "good"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello Ada", rec.Body.String())
	})

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("/dashboard", ""))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("rejected cookie is cleared", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("/dashboard", "stale"))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "token", cookies[0].Name)
		assert.Equal(t, "", cookies[0].Value)
		assert.True(t, cookies[0].MaxAge < 0)
	})

	t.Run("loop guard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("/login", ""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireGuest(t *testing.T) {
	g := newGate(t)
	h := g.RequireGuest(okHandler(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/login", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello guest", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("/login", "good"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestSessionLoginSetsCookie(t *testing.T) {
	g := newGate(t)

	rec := httptest.NewRecorder()
	r := request("/login", "")
	sess, err := g.Session(rec, r)
	require.NoError(t, err)
	defer sess.Store.Close()

	res := sess.Store.Login(r.Context(), goAuthClient.Credentials{Email: "a@x.io", Password: "bad"})
	assert.Equal(t, goAuthClient.Result{Error: "Invalid credentials"}, res)

	res = sess.Store.Login(r.Context(), goAuthClient.Credentials{Email: "a@x.io", Password: "pw"})
	require.True(t, res.Success)
	assert.False(t, sess.Finish(), "login does not navigate by itself")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	last := cookies[len(cookies)-1]
	assert.Equal(t, "good", last.Value)
	assert.True(t, last.HttpOnly)
}

func TestLogoutHandler(t *testing.T) {
	g := newGate(t)

	rec := httptest.NewRecorder()
	g.LogoutHandler().ServeHTTP(rec, request("/logout", "good"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestNewRequiresAPI(t *testing.T) {
	_, err := New(Options{Config: goAuthClient.DefaultConfig()})
	assert.ErrorIs(t, err, goAuthClient.ErrAPIRequired)
}
