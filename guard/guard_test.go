package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	state goAuthClient.State
	subs  map[int]func(goAuthClient.State)
	next  int
}

func newFakeSource(st goAuthClient.State) *fakeSource {
	return &fakeSource{state: st, subs: map[int]func(goAuthClient.State){}}
}

func (f *fakeSource) Snapshot() goAuthClient.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) Subscribe(fn func(goAuthClient.State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeSource) set(st goAuthClient.State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
	f.deliver(st)
}

// deliver notifies subscribers with st without changing the current state,
// like a notification overtaken by a later change.
func (f *fakeSource) deliver(st goAuthClient.State) {
	f.mu.Lock()
	subs := make([]func(goAuthClient.State), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) Push(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navRecorder) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

var (
	loading  = goAuthClient.State{Loading: true}
	anon     = goAuthClient.State{Restored: true}
	signedIn = goAuthClient.State{Restored: true, Identity: &goAuthClient.User{ID: "u1"}}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		st   goAuthClient.State
		want Decision
	}{
		{"auth loading", Auth, loading, Decision{Status: Checking}},
		{"auth anonymous", Auth, anon, Decision{Status: Denied, Redirect: "/login"}},
		{"auth signed in", Auth, signedIn, Decision{Status: Allowed}},
		{"guest loading", Guest, loading, Decision{Status: Checking}},
		{"guest anonymous", Guest, anon, Decision{Status: Allowed}},
		{"guest signed in", Guest, signedIn, Decision{Status: Denied, Redirect: "/dashboard"}},
		{"auth login in flight", Auth, goAuthClient.State{Restored: true, Loading: true}, Decision{Status: Checking}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.kind, tt.st))
		})
	}
}

func TestAuthGuardRedirectsOnEveryDeniedEvaluation(t *testing.T) {
	src := newFakeSource(loading)
	nav := &navRecorder{}
	logger, _ := test.NewNullLogger()

	g := NewAuthGuard(src, nav, WithLogger(logger))
	defer g.Close()

	assert.Equal(t, Checking, g.Decision().Status)
	assert.Empty(t, nav.Paths())
	assert.Equal(t, DefaultSpinner, g.Render("dashboard", nil))

	src.set(anon)
	assert.Equal(t, Decision{Status: Denied, Redirect: "/login"}, g.Decision())
	src.set(anon)
	assert.Equal(t, []string{"/login", "/login"}, nav.Paths())
	assert.Equal(t, "spinner", g.Render("dashboard", "spinner"))

	src.set(signedIn)
	assert.True(t, g.Allowed())
	assert.Equal(t, "dashboard", g.Render("dashboard", "spinner"))
	assert.Len(t, nav.Paths(), 2)
}

func TestGuardIgnoresStaleDelivery(t *testing.T) {
	src := newFakeSource(loading)
	nav := &navRecorder{}
	logger, _ := test.NewNullLogger()

	g := NewAuthGuard(src, nav, WithLogger(logger))
	defer g.Close()

	src.set(signedIn)
	src.deliver(anon)

	assert.True(t, g.Allowed())
	assert.Empty(t, nav.Paths())
}

func TestGuestGuardIsInverse(t *testing.T) {
	src := newFakeSource(signedIn)
	nav := &navRecorder{}

	g := NewGuestGuard(src, nav)
	defer g.Close()

	assert.Equal(t, Denied, g.Decision().Status)
	assert.Equal(t, []string{"/dashboard"}, nav.Paths())

	src.set(anon)
	assert.Equal(t, "login form", g.Render("login form", nil))
}

func TestGuardOptions(t *testing.T) {
	src := newFakeSource(anon)
	nav := &navRecorder{}

	g := NewAuthGuard(src, nav,
		WithRoutes(goAuthClient.RoutesConfig{Login: "/signin", Dashboard: "/home"}),
		WithFallback("custom"),
	)
	defer g.Close()
	assert.Equal(t, []string{"/signin"}, nav.Paths())
	assert.Equal(t, "custom", g.Render("x", nil))

	g2 := NewAuthGuard(src, nav, WithRedirect("/elsewhere"))
	defer g2.Close()
	assert.Equal(t, "/elsewhere", g2.Decision().Redirect)
}

func TestClosedGuardStopsTracking(t *testing.T) {
	src := newFakeSource(loading)
	nav := &navRecorder{}

	g := NewAuthGuard(src, nav)
	g.Close()
	g.Close()

	src.set(anon)
	assert.Empty(t, nav.Paths())
	assert.Equal(t, Checking, g.Decision().Status)
}

func TestGuardsOverRestoredStore(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		authStatus Status
		guestNav   []string
		authNav    []string
	}{
		{
			name:       "verify accepted",
			status:     http.StatusOK,
			body:       `{"success":true,"user":{"id":"u1","name":"Ada","email":"ada@example.com"}}`,
			authStatus: Allowed,
			guestNav:   []string{"/dashboard"},
		},
		{
			name:       "verify rejected",
			status:     http.StatusUnauthorized,
			body:       `{"detail":"Invalid or expired token"}`,
			authStatus: Denied,
			authNav:    []string{"/login"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/verify", r.URL.Path)
				assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer hs.Close()

			tokens := tokenstore.NewMemoryStore()
			require.NoError(t, tokens.Set(context.Background(), "t1", nil))

			cfg := goAuthClient.DefaultConfig()
			cfg.API.BaseURL = hs.URL
			logger, _ := test.NewNullLogger()
			store, err := goAuthClient.New().WithConfig(cfg).WithTokenStore(tokens).WithLogger(logger).Build()
			require.NoError(t, err)
			defer store.Close()

			authNav, guestNav := &navRecorder{}, &navRecorder{}
			auth := NewAuthGuard(store, authNav, WithLogger(logger))
			defer auth.Close()
			guest := NewGuestGuard(store, guestNav, WithLogger(logger))
			defer guest.Close()

			require.Equal(t, Checking, auth.Decision().Status)
			require.NoError(t, store.Restore(context.Background()))

			assert.Equal(t, tt.authStatus, auth.Decision().Status)
			assert.Equal(t, tt.authNav, authNav.Paths())
			assert.Equal(t, tt.guestNav, guestNav.Paths())

			if tt.authStatus == Denied {
				_, ok, err := tokens.Get(context.Background())
				require.NoError(t, err)
				assert.False(t, ok, "rejected token should be cleared")
			}
		})
	}
}
