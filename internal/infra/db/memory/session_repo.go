// Package memory holds in-process repositories for simulations and
// single-instance runs without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*model.NegotiationSession
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*model.NegotiationSession)}
}

// Save stores a copy. Messages already stored are kept as they were.
func (r *SessionRepo) Save(_ context.Context, _ repository.Tx, s *model.NegotiationSession) error {
	if s == nil || s.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := cloneSession(s)
	if prev, ok := r.sessions[s.ID]; ok && len(prev.Messages) <= len(cp.Messages) {
		copy(cp.Messages, prev.Messages)
	}
	r.sessions[s.ID] = cp
	return nil
}

func (r *SessionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.NegotiationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSession(s), nil
}

// FindActiveByUser returns the newest active session of the user.
func (r *SessionRepo) FindActiveByUser(_ context.Context, _ repository.Tx, userID string) (*model.NegotiationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []*model.NegotiationSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == model.SessionActive {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	return cloneSession(active[0]), nil
}

func (r *SessionRepo) ListIdle(_ context.Context, _ repository.Tx, before time.Time, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var idle []*model.NegotiationSession
	for _, s := range r.sessions {
		if s.Status == model.SessionActive && s.UpdatedAt.Before(before) {
			idle = append(idle, s)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].UpdatedAt.Before(idle[j].UpdatedAt) })
	if limit > 0 && len(idle) > limit {
		idle = idle[:limit]
	}
	ids := make([]string, 0, len(idle))
	for _, s := range idle {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func cloneSession(s *model.NegotiationSession) *model.NegotiationSession {
	cp := *s
	cp.Messages = append([]model.ChatMessage(nil), s.Messages...)
	if s.FinalPrice != nil {
		cp.FinalPrice = model.Price(*s.FinalPrice)
	}
	if s.LastOffer != nil {
		cp.LastOffer = model.Price(*s.LastOffer)
	}
	return &cp
}
