// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain"
)

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var _ Locker = (*RedisLocker)(nil)

type RedisLocker struct {
	cli   *redis.Client
	tries int
	wait  time.Duration
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli, tries: 5, wait: 50 * time.Millisecond}
}

// TryLock makes a bounded number of SETNX attempts and returns
// domain.ErrSessionBusy when the key stays held.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.tries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err == nil && ok {
			return token, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", domain.ErrSessionBusy
		case <-time.After(l.wait):
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrSessionBusy
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}

// SessionLocker serializes turns of one negotiation across processes.
// It keeps retrying TryLock until ctx is done.
type SessionLocker struct {
	locker Locker
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewSessionLocker(l Locker, ttl time.Duration, logger *zerolog.Logger) *SessionLocker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SessionLocker{locker: l, ttl: ttl, log: logger}
}

func (s *SessionLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		token, err := s.locker.TryLock(ctx, key, s.ttl)
		if err == nil {
			return func() {
				// the caller's ctx may already be cancelled
				uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := s.locker.Unlock(uctx, key, token); err != nil {
					s.log.Warn().Err(err).Str("key", key).Msg("release session lock")
				}
			}, nil
		}
		if ctx.Err() != nil {
			return nil, domain.ErrSessionBusy
		}
		if err != domain.ErrSessionBusy {
			return nil, err
		}
	}
}
