package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *RateLimitStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimitStore(client, "ratelimit")
}

func TestRateLimitStoreAllowsWithinLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		decision, err := store.Allow(ctx, "login", "198.51.100.7", 3, time.Minute, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Allow attempt %d: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d: expected allowed", i+1)
		}
		if decision.Remaining != 3-i-1 {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 3-i-1, decision.Remaining)
		}
	}
}

func TestRateLimitStoreDeniesOverLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if _, err := store.Allow(ctx, "login", "client-1", 2, time.Minute, now); err != nil {
			t.Fatalf("Allow: %v", err)
		}
	}

	decision, err := store.Allow(ctx, "login", "client-1", 2, time.Minute, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial over the limit")
	}
	if decision.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", decision.RetryAfter)
	}
	if decision.Reset.Before(now) {
		t.Fatalf("expected reset in the future")
	}
}

func TestRateLimitStoreDenialDoesNotExtendWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.Allow(ctx, "forgot", "client-2", 1, time.Minute, now); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	denied, err := store.Allow(ctx, "forgot", "client-2", 1, time.Minute, now.Add(30*time.Second))
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if denied.Allowed {
		t.Fatalf("expected denial")
	}

	// the denied attempt was not recorded: once the first attempt ages out,
	// the client is admitted again
	later, err := store.Allow(ctx, "forgot", "client-2", 1, time.Minute, now.Add(61*time.Second))
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !later.Allowed {
		t.Fatalf("expected admission after the window elapsed")
	}
}

func TestRateLimitStoreScopesAreIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.Allow(ctx, "login", "client-3", 1, time.Minute, now); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	decision, err := store.Allow(ctx, "signup", "client-3", 1, time.Minute, now)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected independent budget per endpoint scope")
	}
}

func TestRateLimitStoreRejectsInvalidInput(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Allow(context.Background(), "login", "client-4", 0, time.Minute, time.Now()); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := store.Allow(context.Background(), "", "client-4", 1, time.Minute, time.Now()); err == nil {
		t.Fatalf("expected error for empty scope")
	}
}
