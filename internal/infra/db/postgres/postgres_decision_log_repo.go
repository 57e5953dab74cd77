package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/repository"
)

var _ repository.DecisionLogRepository = (*decisionLogRepo)(nil)

type decisionLogRepo struct {
	pool *pgxpool.Pool
}

func NewDecisionLogRepo(pool *pgxpool.Pool) repository.DecisionLogRepository {
	return &decisionLogRepo{pool: pool}
}

func (r *decisionLogRepo) Append(ctx context.Context, e model.DecisionLogEntry) error {
	payload, err := json.Marshal(e.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	const q = `
INSERT INTO negotiation_decisions (id, session_id, user_id, product_id, round_number, action, source, decision, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9,NOW()))`
	_, err = execSQL(ctx, r.pool, nil, q, e.ID, e.SessionID, e.UserID, e.ProductID, e.Round,
		string(e.Decision.Action), string(e.Decision.Source), payload, nullTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("append decision: %w", mapPgError(err))
	}
	return nil
}

// ListBySession returns the latest limit entries, oldest first. ULID ids
// sort by creation time.
func (r *decisionLogRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.DecisionLogEntry, error) {
	const q = `
SELECT id, session_id, user_id, product_id, round_number, decision, created_at FROM (
  SELECT * FROM negotiation_decisions WHERE session_id = $1 ORDER BY id DESC LIMIT $2
) recent ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, nil, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DecisionLogEntry
	for rows.Next() {
		var e model.DecisionLogEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.ProductID, &e.Round, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Decision); err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
