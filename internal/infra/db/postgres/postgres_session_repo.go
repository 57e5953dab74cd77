// File: internal/infra/db/postgres/postgres_session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo stores sessions in negotiation_sessions and their append-only
// conversation in negotiation_messages.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Save upserts the session row and inserts messages beyond the stored ones.
// Pass a tx to make both writes atomic.
func (r *SessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.NegotiationSession) error {
	if s == nil || s.ID == "" {
		return domain.ErrInvalidArgument
	}
	product, err := json.Marshal(s.Product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	const q = `
INSERT INTO negotiation_sessions (
  id, user_id, product, target_price, max_budget, approach, timeline,
  status, phase, outcome, final_price, last_offer, last_action, handoff_reason,
  created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,COALESCE($15,NOW()),COALESCE($16,NOW()))
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  phase = EXCLUDED.phase,
  outcome = EXCLUDED.outcome,
  final_price = EXCLUDED.final_price,
  last_offer = EXCLUDED.last_offer,
  last_action = EXCLUDED.last_action,
  handoff_reason = EXCLUDED.handoff_reason,
  updated_at = EXCLUDED.updated_at;`
	_, err = execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, product, s.Params.TargetPrice, s.Params.MaxBudget,
		string(s.Params.Approach), s.Params.Timeline,
		string(s.Status), string(s.Phase), string(s.Outcome), s.FinalPrice, s.LastOffer,
		string(s.LastAction), s.HandoffReason, nullTime(s.CreatedAt), nullTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save session: %w", mapPgError(err))
	}

	return r.appendMessages(ctx, tx, s)
}

func (r *SessionRepo) appendMessages(ctx context.Context, tx repository.Tx, s *model.NegotiationSession) error {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(MAX(seq), 0) FROM negotiation_messages WHERE session_id = $1;`, s.ID)
	if err != nil {
		return err
	}
	var stored int
	if err := row.Scan(&stored); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	const q = `
INSERT INTO negotiation_messages (session_id, seq, role, content, created_at)
VALUES ($1,$2,$3,$4,COALESCE($5,NOW()))
ON CONFLICT (session_id, seq) DO NOTHING;`
	for _, m := range s.Messages {
		if m.Seq <= stored {
			continue
		}
		if _, err := execSQL(ctx, r.pool, tx, q, s.ID, m.Seq, string(m.Role), m.Content, nullTime(m.Timestamp)); err != nil {
			return fmt.Errorf("save message %d: %w", m.Seq, err)
		}
	}
	return nil
}

const sessionColumns = `id, user_id, product, target_price, max_budget, approach, timeline,
  status, phase, outcome, final_price, last_offer, last_action, handoff_reason, created_at, updated_at`

func (r *SessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.NegotiationSession, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+sessionColumns+` FROM negotiation_sessions WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, tx, row)
}

func (r *SessionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.NegotiationSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM negotiation_sessions
WHERE user_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, tx, row)
}

func (r *SessionRepo) ListIdle(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id FROM negotiation_sessions
WHERE status = 'active' AND updated_at < $1 ORDER BY updated_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, before, limit)
	if err != nil {
		return nil, fmt.Errorf("query idle sessions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return ids, nil
}

func (r *SessionRepo) load(ctx context.Context, tx repository.Tx, row pgx.Row) (*model.NegotiationSession, error) {
	var s model.NegotiationSession
	var product []byte
	var approach, status, phase, outcome, la string
	err := row.Scan(&s.ID, &s.UserID, &product, &s.Params.TargetPrice, &s.Params.MaxBudget,
		&approach, &s.Params.Timeline, &status, &phase, &outcome,
		&s.FinalPrice, &s.LastOffer, &la, &s.HandoffReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(product, &s.Product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	s.Params.Approach = model.Approach(approach)
	s.Status = model.SessionStatus(status)
	s.Phase = model.Phase(phase)
	s.Outcome = model.Outcome(outcome)
	s.LastAction = model.ActionType(la)

	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT seq, role, content, created_at FROM negotiation_messages WHERE session_id = $1 ORDER BY seq ASC;`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m := model.ChatMessage{SessionID: s.ID}
		var role string
		if err := rows.Scan(&m.Seq, &role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		s.Messages = append(s.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return &s, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
