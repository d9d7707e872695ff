package goAuthClient

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/goAuthClient/devserver"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
)

func newDevBackend(t *testing.T, mutate func(*devserver.Config)) (*devserver.Server, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := devserver.DefaultConfig()
	cfg.JWTSecret = "integration-secret-0123456789abcdef"
	if mutate != nil {
		mutate(&cfg)
	}
	logger, _ := test.NewNullLogger()
	srv, err := devserver.New(rdb, cfg, devserver.WithLogger(logger), devserver.WithNotifier(&devserver.MemoryNotifier{}))
	if err != nil {
		t.Fatalf("devserver.New: %v", err)
	}
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	return srv, hs.URL
}

func newHTTPStore(t *testing.T, baseURL string, tokens tokenstore.Store, mutate func(*Config)) (*Store, *recordingNavigator) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	if mutate != nil {
		mutate(&cfg)
	}
	logger, _ := test.NewNullLogger()
	nav := &recordingNavigator{}
	store, err := New().
		WithConfig(cfg).
		WithTokenStore(tokens).
		WithNavigator(nav).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(store.Close)
	return store, nav
}

func TestIntegrationLoginThenRestoreInNewStore(t *testing.T) {
	srv, baseURL := newDevBackend(t, nil)
	ctx := context.Background()
	if _, err := srv.SeedUser(ctx, "Ada", "ada@example.com", "correct-password", "user"); err != nil {
		t.Fatal(err)
	}

	tokens := tokenstore.NewMemoryStore()
	first, _ := newHTTPStore(t, baseURL, tokens, nil)
	_ = first.Restore(ctx)

	res := first.Login(ctx, Credentials{Email: "x@y.com", Password: "bad"})
	if res.Success || res.Error != "Invalid credentials" {
		t.Fatalf("bad login result = %+v", res)
	}
	if _, ok := first.Identity(); ok {
		t.Fatal("identity must stay unset")
	}

	if res := first.Login(ctx, Credentials{Email: "ada@example.com", Password: "correct-password"}); !res.Success {
		t.Fatalf("login result = %+v", res)
	}

	second, _ := newHTTPStore(t, baseURL, tokens, nil)
	if err := second.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	user, ok := second.Identity()
	if !ok || user.Email != "ada@example.com" {
		t.Fatalf("restored identity = %+v", user)
	}
}

func TestIntegrationRejectedTokenIsCleared(t *testing.T) {
	_, baseURL := newDevBackend(t, nil)
	ctx := context.Background()

	tokens := tokenstore.NewMemoryStore()
	seed(t, tokens, "not-a-real-token")
	store, _ := newHTTPStore(t, baseURL, tokens, nil)

	_ = store.Restore(ctx)
	if _, ok := store.Identity(); ok {
		t.Fatal("expected no identity")
	}
	if _, ok := persisted(t, tokens); ok {
		t.Fatal("expected token cleared")
	}
}

func TestIntegrationDevBypass(t *testing.T) {
	_, baseURL := newDevBackend(t, func(c *devserver.Config) { c.EnableDevLogin = true })
	ctx := context.Background()

	store, _ := newHTTPStore(t, baseURL, tokenstore.NewMemoryStore(), func(c *Config) { c.DevBypass = "1" })
	_ = store.Restore(ctx)
	user, ok := store.Identity()
	if !ok || user.Email != "dev@localhost" {
		t.Fatalf("identity = %+v", user)
	}

	if res := store.RefreshUser(ctx); !res.Success {
		t.Fatalf("refresh = %+v", res)
	}
}

func TestIntegrationUnreachableServerLeavesLoggedOut(t *testing.T) {
	tokens := tokenstore.NewMemoryStore()
	seed(t, tokens, "t1")
	store, _ := newHTTPStore(t, "http://127.0.0.1:1", tokens, nil)

	_ = store.Restore(context.Background())
	if _, ok := store.Identity(); ok || store.Loading() {
		t.Fatal("expected settled and unauthenticated")
	}
	res := store.Login(context.Background(), Credentials{Email: "a@x.io", Password: "pw"})
	if res.Success || res.Error != MsgLoginFailed {
		t.Fatalf("result = %+v", res)
	}
}
