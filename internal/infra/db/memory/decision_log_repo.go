package memory

import (
	"context"
	"sync"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/repository"
)

var _ repository.DecisionLogRepository = (*DecisionLogRepo)(nil)

type DecisionLogRepo struct {
	mu      sync.RWMutex
	entries []model.DecisionLogEntry
}

func NewDecisionLogRepo() *DecisionLogRepo { return &DecisionLogRepo{} }

func (r *DecisionLogRepo) Append(_ context.Context, e model.DecisionLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// ListBySession returns the most recent entries in insertion order.
func (r *DecisionLogRepo) ListBySession(_ context.Context, sessionID string, limit int) ([]model.DecisionLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.DecisionLogEntry
	for _, e := range r.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
