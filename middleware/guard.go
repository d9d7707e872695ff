package middleware

import (
	"errors"
	"net/http"
	"sync"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/guard"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/sirupsen/logrus"
)

// Options configures a [Gate].
type Options struct {
	Config goAuthClient.Config
	// API is shared by every per-request session. When nil, one client is
	// built from Config.API.
	API    goAuthClient.AuthAPI
	Cookie tokenstore.CookieConfig
	Logger logrus.FieldLogger
}

// Gate builds request-scoped sessions and guards handlers with them.
type Gate struct {
	config goAuthClient.Config
	api    goAuthClient.AuthAPI
	cookie tokenstore.CookieConfig
	logger logrus.FieldLogger
}

// New validates opts and returns a Gate.
func New(opts Options) (*Gate, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := opts.API
	if client == nil {
		if opts.Config.API.BaseURL == "" {
			return nil, goAuthClient.ErrAPIRequired
		}
		c, err := api.NewClient(api.Config{
			BaseURL:   opts.Config.API.BaseURL,
			Timeout:   opts.Config.API.Timeout,
			UserAgent: opts.Config.API.UserAgent,
		}, logger)
		if err != nil {
			return nil, err
		}
		client = c
	}

	cookie := opts.Cookie
	if cookie.Name == "" {
		cookie = tokenstore.DefaultCookieConfig()
	}

	return &Gate{
		config: opts.Config,
		api:    client,
		cookie: cookie,
		logger: logger.WithField("component", "middleware"),
	}, nil
}

// redirectNavigator remembers the last navigation requested during a
// request so it can be turned into an HTTP redirect.
type redirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *redirectNavigator) Push(path string) {
	n.mu.Lock()
	n.target = path
	n.mu.Unlock()
}

func (n *redirectNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

// Session is a request-scoped session store. Operations on Store persist
// through the response cookie; Finish turns a requested navigation into a
// redirect.
type Session struct {
	Store *goAuthClient.Store
	nav   *redirectNavigator
	w     http.ResponseWriter
	r     *http.Request
}

// Finish issues a 303 redirect when the session asked to navigate and
// reports whether it did.
func (s *Session) Finish() bool {
	target := s.nav.Target()
	if target == "" {
		return false
	}
	http.Redirect(s.w, s.r, target, http.StatusSeeOther)
	return true
}

// Session builds and restores a session for r. Restoration failures leave
// the session unauthenticated; only a cancelled request returns an error.
func (g *Gate) Session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess, err := g.build(w, r)
	if err != nil {
		return nil, err
	}
	if err := sess.Store.Restore(r.Context()); err != nil {
		sess.Store.Close()
		return nil, err
	}
	return sess, nil
}

func (g *Gate) build(w http.ResponseWriter, r *http.Request) (*Session, error) {
	nav := &redirectNavigator{}
	store, err := goAuthClient.New().
		WithConfig(g.config).
		WithAPI(g.api).
		WithTokenStore(tokenstore.NewCookieStore(w, r, g.cookie)).
		WithNavigator(nav).
		WithLogger(g.logger).
		WithMetricsEnabled(false).
		Build()
	if err != nil {
		return nil, err
	}
	return &Session{Store: store, nav: nav, w: w, r: r}, nil
}

// RequireAuth serves next only to authenticated requests. Others are
// redirected to the login route.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return g.require(guard.Auth, next)
}

// RequireGuest serves next only to unauthenticated requests. Others are
// redirected to the dashboard route.
func (g *Gate) RequireGuest(next http.Handler) http.Handler {
	return g.require(guard.Guest, next)
}

func (g *Gate) require(kind guard.Kind, next http.Handler) http.Handler {
	target := guard.DefaultRedirect(kind, g.config.Routes)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.Session(w, r)
		if err != nil {
			if !errors.Is(err, r.Context().Err()) {
				g.logger.WithError(err).Errorln("Session setup failed")
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		defer sess.Store.Close()

		st := sess.Store.Snapshot()
		d := guard.DecideWith(kind, st, target)
		switch d.Status {
		case guard.Allowed:
			ctx := goAuthClient.WithIdentity(r.Context(), st.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		case guard.Denied:
			if d.Redirect == r.URL.Path {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		default:
			// Restore has settled, so this is unreachable in practice.
			http.Error(w, "session pending", http.StatusServiceUnavailable)
		}
	})
}

// LogoutHandler clears the session cookie and redirects to the landing
// route.
func (g *Gate) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.build(w, r)
		if err != nil {
			g.logger.WithError(err).Errorln("Session setup failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		defer sess.Store.Close()

		sess.Store.Logout(r.Context())
		sess.Finish()
	})
}

// IdentityFromContext returns the user admitted by RequireAuth.
func IdentityFromContext(r *http.Request) (*goAuthClient.User, bool) {
	return goAuthClient.IdentityFromContext(r.Context())
}
