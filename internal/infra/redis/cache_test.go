//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Analyze(_ context.Context, q adapter.MarketQuery) (model.MarketAnalysis, error) {
	p.calls++
	if p.err != nil {
		return model.MarketAnalysis{}, p.err
	}
	return model.MarketAnalysis{Category: q.Category, EstimatedValue: q.ListedPrice - 1000}, nil
}

func TestCachedMarketProvider_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{}
	cache := newMemClient()
	p := NewCachedMarketProvider(inner, cache, time.Hour, nil)
	q := adapter.MarketQuery{Category: "Mobile Phones", Title: "iPhone  13", ListedPrice: 60000}

	for i := 0; i < 3; i++ {
		m, err := p.Analyze(ctx, q)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if m.EstimatedValue != 59000 {
			t.Fatalf("unexpected estimate %d", m.EstimatedValue)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner provider called %d times, want 1", inner.calls)
	}
	if ttl := cache.ttls["market:mobile phones:iphone_13:60000"]; ttl != time.Hour {
		t.Fatalf("cache entry missing or wrong ttl: %v (%v)", ttl, cache.ttls)
	}
}

func TestCachedMarketProvider_CacheDownFallsBack(t *testing.T) {
	inner := &countingProvider{}
	cache := newMemClient()
	cache.err = errDown
	p := NewCachedMarketProvider(inner, cache, time.Hour, nil)

	m, err := p.Analyze(context.Background(), adapter.MarketQuery{Category: "Laptops", ListedPrice: 40000})
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if m.EstimatedValue != 39000 || inner.calls != 1 {
		t.Fatalf("expected inner answer, got %+v after %d calls", m, inner.calls)
	}
}

func TestCachedMarketProvider_InnerError(t *testing.T) {
	boom := errors.New("boom")
	p := NewCachedMarketProvider(&countingProvider{err: boom}, newMemClient(), time.Hour, nil)
	if _, err := p.Analyze(context.Background(), adapter.MarketQuery{}); !errors.Is(err, boom) {
		t.Fatalf("expected inner error, got %v", err)
	}
}

func TestSessionCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewSessionCache(newMemClient(), time.Minute)

	s, err := model.NewNegotiationSession("s-1", "u-1",
		model.Product{Title: "iPhone 13", ListedPrice: 60000},
		model.UserParameters{TargetPrice: 45000, MaxBudget: 55000})
	if err != nil {
		t.Fatalf("NewNegotiationSession: %v", err)
	}
	s.AddMessage(model.RoleBuyer, "Would you take ₹49,500?")
	s.LastOffer = model.Price(49500)

	if err := c.Store(ctx, s); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := c.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "u-1" || len(got.Messages) != 1 || got.LastOffer == nil || *got.LastOffer != 49500 {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := c.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "s-1"); err != Nil {
		t.Fatalf("expected Nil after delete, got %v", err)
	}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	client := newMemClient()
	rl := NewRateLimiter(client)
	key := ClientKey("api", "10.0.0.1")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Fatal("fourth request should be limited")
	}
	if client.ttls[key] != time.Minute {
		t.Fatalf("window not set on first hit")
	}
	if key != "rate_limit:api:10.0.0.1" {
		t.Fatalf("unexpected key %q", key)
	}
}
