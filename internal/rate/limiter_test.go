package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLoginBudgetAndCooldown(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "a@x.io", ""); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		_ = l.IncrementLogin(ctx, "A@x.io ", "")
	}
	if err := l.CheckLogin(ctx, "a@x.io", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(61 * time.Second)
	if err := l.CheckLogin(ctx, "a@x.io", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 5, LoginCooldown: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@x.io", "1.2.3.4")
	_ = l.IncrementLogin(ctx, "a@x.io", "1.2.3.4")
	if n, _ := l.LoginAttempts(ctx, "a@x.io"); n != 2 {
		t.Fatalf("attempts = %d, want 2", n)
	}
	if err := l.ResetLogin(ctx, "a@x.io", "1.2.3.4"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if n, _ := l.LoginAttempts(ctx, "a@x.io"); n != 0 {
		t.Fatalf("attempts = %d after reset, want 0", n)
	}
}

func TestIPThrottleSpansEmails(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 2, LoginCooldown: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@x.io", "9.9.9.9")
	_ = l.IncrementLogin(ctx, "b@x.io", "9.9.9.9")
	if err := l.CheckLogin(ctx, "c@x.io", "9.9.9.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}
	if err := l.CheckLogin(ctx, "c@x.io", "8.8.8.8"); err != nil {
		t.Fatalf("other IP should pass, got %v", err)
	}
}

func TestAllowResetRequest(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxResetRequests: 2, ResetRequestWindow: time.Hour})
	ctx := context.Background()

	if err := l.AllowResetRequest(ctx, "a@x.io"); err != nil {
		t.Fatal(err)
	}
	if err := l.AllowResetRequest(ctx, "a@x.io"); err != nil {
		t.Fatal(err)
	}
	if err := l.AllowResetRequest(ctx, "a@x.io"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRedisDownIsWrapped(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldown: time.Minute})
	mr.Close()

	if err := l.CheckLogin(context.Background(), "a@x.io", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
