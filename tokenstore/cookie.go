package tokenstore

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns a host-only, HttpOnly, Lax cookie named "token".
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "token",
		Path:     "/",
		MaxAge:   7 * 24 * time.Hour,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieStore reads the token from one request and writes changes to its
// response. It is scoped to a single request.
//
// Only the token fits in the cookie; Get never returns a user.
type CookieStore struct {
	cfg     CookieConfig
	r       *http.Request
	w       http.ResponseWriter
	current string
	cleared bool
}

// NewCookieStore binds a CookieStore to one request/response pair.
func NewCookieStore(w http.ResponseWriter, r *http.Request, cfg CookieConfig) *CookieStore {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieConfig().Name
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieStore{cfg: cfg, r: r, w: w}
}

// Get implements [Store]. Writes made through this store are visible to
// later Gets on the same request.
func (c *CookieStore) Get(context.Context) (Persisted, bool, error) {
	if c.cleared {
		return Persisted{}, false, nil
	}
	if c.current != "" {
		return Persisted{Token: c.current}, true, nil
	}
	if c.r == nil {
		return Persisted{}, false, nil
	}
	ck, err := c.r.Cookie(c.cfg.Name)
	if err != nil {
		return Persisted{}, false, nil
	}
	v := strings.TrimSpace(ck.Value)
	if v == "" {
		return Persisted{}, false, nil
	}
	return Persisted{Token: v}, true, nil
}

// Set implements [Store].
func (c *CookieStore) Set(_ context.Context, token string, _ *api.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	if c.w == nil {
		return errors.New("cookie store has no response writer")
	}
	ck := c.cookie(token)
	if c.cfg.MaxAge > 0 {
		ck.MaxAge = int(c.cfg.MaxAge / time.Second)
		ck.Expires = time.Now().Add(c.cfg.MaxAge)
	}
	http.SetCookie(c.w, ck)
	c.current = token
	c.cleared = false
	return nil
}

// Clear implements [Store].
func (c *CookieStore) Clear(context.Context) error {
	if c.w != nil {
		ck := c.cookie("")
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(c.w, ck)
	}
	c.current = ""
	c.cleared = true
	return nil
}

func (c *CookieStore) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.Name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	}
}
