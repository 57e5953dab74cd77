//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"negotiation-agent/internal/domain"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "a"); !errors.Is(err, domain.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	other, err := l.Lock(context.Background(), "b")
	if err != nil {
		t.Fatalf("independent key should lock: %v", err)
	}
	other()

	unlock()
	unlock() // idempotent
	again, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	again()

	if len(l.slots) != 0 {
		t.Fatalf("slots leaked: %d", len(l.slots))
	}
}
