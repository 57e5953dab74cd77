package repository

import (
	"context"
	"time"

	"negotiation-agent/internal/domain/model"
)

// -----------------------------
// Negotiation sessions
// -----------------------------

type SessionRepository interface {
	// Save upserts session state and appends messages not stored yet.
	// Stored messages are never rewritten.
	Save(ctx context.Context, tx Tx, s *model.NegotiationSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.NegotiationSession, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.NegotiationSession, error)
	// ListIdle returns ids of active sessions not updated since before, oldest first.
	ListIdle(ctx context.Context, tx Tx, before time.Time, limit int) ([]string, error)
}

// -----------------------------
// Decision log
// -----------------------------

type DecisionLogRepository interface {
	Append(ctx context.Context, entry model.DecisionLogEntry) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.DecisionLogEntry, error)
}
