package tokenstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "gac", "default", time.Hour)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

// exerciseStore runs the contract every Store implementation must honor.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	user := &api.User{ID: "u1", Email: "a@b.com"}
	if err := s.Set(ctx, "tok-1", user); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, ok, err := s.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("expected persisted value, got ok=%v err=%v", ok, err)
	}
	if p.Token != "tok-1" {
		t.Fatalf("expected token tok-1, got %q", p.Token)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, ok, err := s.Get(ctx); err != nil || ok {
		t.Fatalf("expected cleared store, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "", user); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	user := &api.User{ID: "u1", Name: "before"}
	if err := s.Set(ctx, "tok", user); err != nil {
		t.Fatalf("set: %v", err)
	}
	user.Name = "after"

	p, _, _ := s.Get(ctx)
	if p.User.Name != "before" {
		t.Fatalf("expected stored user to be isolated from caller mutation, got %q", p.User.Name)
	}
}

func TestFileStoreContract(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "nested", "default.yaml")))
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	ctx := context.Background()

	if err := NewFileStore(path).Set(ctx, "tok-1", &api.User{ID: "u1", Email: "a@b.com"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	p, ok, err := NewFileStore(path).Get(ctx)
	if err != nil || !ok {
		t.Fatalf("expected reload to find session, got ok=%v err=%v", ok, err)
	}
	if p.User == nil || p.User.ID != "u1" {
		t.Fatalf("expected user u1 after reload, got %+v", p.User)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := os.WriteFile(path, []byte("token: [unterminated"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := NewFileStore(path).Get(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestDefaultPathRejectsTraversal(t *testing.T) {
	if _, err := DefaultPath("../etc"); err == nil {
		t.Fatal("expected profile with separators to be rejected")
	}
}

func TestRedisStoreContract(t *testing.T) {
	s, _, done := newRedisStoreTest(t)
	defer done()
	exerciseStore(t, s)
}

func TestRedisStoreTTLAndCorrupt(t *testing.T) {
	s, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := s.Set(ctx, "tok", &api.User{ID: "u1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(s.Key()); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, err := s.Get(ctx); err != nil || ok {
		t.Fatalf("expected expired key to read as empty, got ok=%v err=%v", ok, err)
	}

	if err := mr.Set(s.Key(), "not-json"); err != nil {
		t.Fatalf("seed corrupt: %v", err)
	}
	if _, _, err := s.Get(ctx); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr, done := newRedisStoreTest(t)
	defer done()
	mr.Close()

	if _, _, err := s.Get(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestCookieStoreReadsRequestAndWritesResponse(t *testing.T) {
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok-1"})
	rec := httptest.NewRecorder()

	s := NewCookieStore(rec, req, DefaultCookieConfig())
	p, ok, err := s.Get(ctx)
	if err != nil || !ok || p.Token != "tok-1" {
		t.Fatalf("expected token from request cookie, got %+v ok=%v err=%v", p, ok, err)
	}
	if p.User != nil {
		t.Fatalf("cookie store must not return a user, got %+v", p.User)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx); ok {
		t.Fatal("expected cleared cookie store to read as empty for the rest of the request")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "token" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected one expiring token cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
}

func TestCookieStoreSetIsVisibleToGet(t *testing.T) {
	ctx := context.Background()
	rec := httptest.NewRecorder()
	s := NewCookieStore(rec, httptest.NewRequest(http.MethodPost, "/login", nil), CookieConfig{})

	if err := s.Set(ctx, "tok-2", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, ok, _ := s.Get(ctx)
	if !ok || p.Token != "tok-2" {
		t.Fatalf("expected written token, got %+v ok=%v", p, ok)
	}
	if got := rec.Result().Cookies(); len(got) != 1 || got[0].Value != "tok-2" {
		t.Fatalf("expected Set-Cookie with tok-2, got %+v", got)
	}
}
