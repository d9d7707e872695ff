package guard

import (
	"sync"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/sirupsen/logrus"
)

// Source is the part of [goAuthClient.Store] a guard observes.
type Source interface {
	Snapshot() goAuthClient.State
	Subscribe(fn func(goAuthClient.State)) (unsubscribe func())
}

// View is whatever the host renders: a template name, a component, a
// handler.
type View = any

// Spinner is the default fallback view shown while checking or redirecting.
type Spinner struct {
	Label string
}

// DefaultSpinner is the fallback used when none is configured.
var DefaultSpinner = Spinner{Label: "Loading..."}

// Option customizes a [Guard].
type Option func(*Guard)

// WithRedirect overrides the redirect target.
func WithRedirect(path string) Option {
	return func(g *Guard) { g.redirect = path }
}

// WithRoutes derives the redirect target from the configured routes.
func WithRoutes(routes goAuthClient.RoutesConfig) Option {
	return func(g *Guard) { g.redirect = DefaultRedirect(g.kind, routes) }
}

// WithFallback sets the view rendered while not allowed.
func WithFallback(v View) Option {
	return func(g *Guard) { g.fallback = v }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Guard) { g.logger = l }
}

// Guard tracks a [Source] and keeps the latest [Decision].
type Guard struct {
	kind     Kind
	source   Source
	nav      goAuthClient.Navigator
	redirect string
	fallback View
	logger   logrus.FieldLogger

	mu          sync.Mutex
	decision    Decision
	seq         uint64
	unsubscribe func()
}

// NewAuthGuard returns a guard admitting authenticated users.
func NewAuthGuard(src Source, nav goAuthClient.Navigator, opts ...Option) *Guard {
	return New(Auth, src, nav, opts...)
}

// NewGuestGuard returns a guard admitting unauthenticated users.
func NewGuestGuard(src Source, nav goAuthClient.Navigator, opts ...Option) *Guard {
	return New(Guest, src, nav, opts...)
}

// New evaluates src immediately, then on every change until Close.
func New(kind Kind, src Source, nav goAuthClient.Navigator, opts ...Option) *Guard {
	g := &Guard{
		kind:     kind,
		source:   src,
		nav:      nav,
		redirect: DefaultRedirect(kind, goAuthClient.DefaultConfig().Routes),
		fallback: DefaultSpinner,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.nav == nil {
		g.nav = goAuthClient.NavigatorFunc(func(string) {})
	}
	g.logger = g.logger.WithField("guard", kind.String())

	g.mu.Lock()
	g.unsubscribe = src.Subscribe(func(goAuthClient.State) { g.evaluate() })
	g.mu.Unlock()
	g.evaluate()
	return g
}

// evaluate decides on the source's current state rather than the delivered
// one, which may be stale when changes race.
func (g *Guard) evaluate() {
	g.mu.Lock()
	if g.unsubscribe == nil {
		g.mu.Unlock()
		return
	}
	d := DecideWith(g.kind, g.source.Snapshot(), g.redirect)
	g.decision = d
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	if d.Status != Denied {
		return
	}

	g.mu.Lock()
	superseded := g.seq != seq
	g.mu.Unlock()
	if superseded {
		return
	}
	g.logger.WithField("redirect", d.Redirect).Debugln("Access denied, redirecting")
	g.nav.Push(d.Redirect)
}

// Decision returns the latest verdict.
func (g *Guard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// Allowed reports whether children may be shown.
func (g *Guard) Allowed() bool {
	return g.Decision().Status == Allowed
}

// Render returns children when allowed and fallback otherwise. A nil
// fallback uses the guard's configured one.
func (g *Guard) Render(children, fallback View) View {
	if g.Allowed() {
		return children
	}
	if fallback == nil {
		return g.fallback
	}
	return fallback
}

// Close stops tracking the source. The last decision stays readable.
func (g *Guard) Close() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
