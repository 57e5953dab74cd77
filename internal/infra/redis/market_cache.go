package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/infra/metrics"
)

var _ adapter.MarketDataProvider = (*CachedMarketProvider)(nil)

// CachedMarketProvider decorates a MarketDataProvider with a TTL cache.
// Cache failures are logged and the inner provider answers instead.
type CachedMarketProvider struct {
	inner adapter.MarketDataProvider
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewCachedMarketProvider(inner adapter.MarketDataProvider, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) *CachedMarketProvider {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CachedMarketProvider{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func marketKey(q adapter.MarketQuery) string {
	return fmt.Sprintf("market:%s:%s:%d",
		strings.ToLower(strings.TrimSpace(q.Category)),
		strings.ToLower(strings.Join(strings.Fields(q.Title), "_")),
		q.ListedPrice)
}

func (p *CachedMarketProvider) Analyze(ctx context.Context, q adapter.MarketQuery) (model.MarketAnalysis, error) {
	key := marketKey(q)
	val, err := p.cache.Get(ctx, key)
	if err == nil {
		var m model.MarketAnalysis
		if json.Unmarshal([]byte(val), &m) == nil {
			metrics.IncCacheRequest("market", "hit")
			return m, nil
		}
	} else if err != Nil {
		p.log.Warn().Err(err).Str("key", key).Msg("market cache read")
	}

	metrics.IncCacheRequest("market", "miss")
	m, err := p.inner.Analyze(ctx, q)
	if err != nil {
		return model.MarketAnalysis{}, err
	}
	if b, err := json.Marshal(m); err == nil {
		if err := p.cache.Set(ctx, key, b, p.ttl); err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("market cache write")
		}
	}
	return m, nil
}
