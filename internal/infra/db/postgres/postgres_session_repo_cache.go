package postgres

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/repository"
	"negotiation-agent/internal/infra/metrics"
	red "negotiation-agent/internal/infra/redis"
)

var _ repository.SessionRepository = (*sessionRepoCacheDecorator)(nil)

// sessionRepoCacheDecorator serves FindByID from redis. Writes go to the
// inner repository first and then refresh the cache; a failed cache write
// drops the entry so readers never see a stale session.
type sessionRepoCacheDecorator struct {
	inner repository.SessionRepository
	cache *red.SessionCache
	log   *zerolog.Logger
}

func NewSessionRepoCacheDecorator(inner repository.SessionRepository, cache *red.SessionCache, logger *zerolog.Logger) repository.SessionRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &sessionRepoCacheDecorator{inner: inner, cache: cache, log: logger}
}

func (d *sessionRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, s *model.NegotiationSession) error {
	if err := d.inner.Save(ctx, tx, s); err != nil {
		_ = d.cache.Delete(ctx, s.ID)
		return err
	}
	if err := d.cache.Store(ctx, s); err != nil {
		d.log.Warn().Err(err).Str("session_id", s.ID).Msg("session cache write")
		_ = d.cache.Delete(ctx, s.ID)
	}
	return nil
}

func (d *sessionRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.NegotiationSession, error) {
	// inside a transaction the database is authoritative
	if tx == nil {
		if s, err := d.cache.Get(ctx, id); err == nil {
			metrics.IncCacheRequest("session", "hit")
			return s, nil
		} else if err != red.Nil {
			d.log.Warn().Err(err).Str("session_id", id).Msg("session cache read")
		}
	}
	metrics.IncCacheRequest("session", "miss")
	s, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Store(ctx, s)
	return s, nil
}

// Pass-through: active lookups must observe other processes' writes.
func (d *sessionRepoCacheDecorator) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.NegotiationSession, error) {
	return d.inner.FindActiveByUser(ctx, tx, userID)
}

func (d *sessionRepoCacheDecorator) ListIdle(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]string, error) {
	return d.inner.ListIdle(ctx, tx, before, limit)
}
