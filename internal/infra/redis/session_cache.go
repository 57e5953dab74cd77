package redis

import (
	"context"
	"encoding/json"
	"time"

	"negotiation-agent/internal/domain/model"
)

// SessionCache keeps JSON snapshots of negotiation sessions.
type SessionCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionCache(client RedisClient, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(id string) string { return "negotiation_session:" + id }

func (c *SessionCache) Store(ctx context.Context, s *model.NegotiationSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(s.ID), data, c.ttl)
}

// Get returns Nil when the session is not cached.
func (c *SessionCache) Get(ctx context.Context, id string) (*model.NegotiationSession, error) {
	data, err := c.client.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, err
	}
	var s model.NegotiationSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *SessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, sessionKey(id))
}
