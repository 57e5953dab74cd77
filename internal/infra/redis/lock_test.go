//go:build integration

package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"negotiation-agent/internal/domain"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	c := NewClientFrom(redis.NewClient(&redis.Options{Addr: addr}))
	if err := c.Ping(context.Background()); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSessionLocker_Integration(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := "negotiation:lock:test-" + time.Now().Format("150405.000")
	locker := NewSessionLocker(NewLocker(c), 5*time.Second, nil)

	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	tctx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(tctx, key); !errors.Is(err, domain.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	unlock()
	again, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	again()
}

func TestRedisLocker_UnlockRequiresToken(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := "negotiation:lock:token-" + time.Now().Format("150405.000")
	l := NewLocker(c)

	token, err := l.TryLock(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := l.Unlock(ctx, key, "someone-else"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := c.Get(ctx, key); err != nil {
		t.Fatalf("foreign token must not release the lock: %v", err)
	}
	if err := l.Unlock(ctx, key, token); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := c.Get(ctx, key); err != Nil {
		t.Fatalf("expected key removed, got %v", err)
	}
}
