//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"negotiation-agent/internal/domain/model"
)

func TestDecisionLogRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	cleanup(t)
	repo := NewDecisionLogRepo(testPool)

	s := seedSession(t, "user-1", "Hi, would you take ₹49,500?", "No, 58000 is the lowest")
	other := seedSession(t, "user-2")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seedDecisions(t, s, 4, base)
	seedDecisions(t, other, 2, base)

	got, err := repo.ListBySession(ctx, s.ID, 2)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 || got[0].Round != 3 || got[1].Round != 4 {
		t.Fatalf("expected rounds 3 and 4 in order, got %+v", got)
	}
	if got[1].SessionID != s.ID || got[1].Decision.Price() != 53000 || got[1].Decision.Tactics[0] != model.TacticAnchoring {
		t.Errorf("decision payload not round-tripped: %+v", got[1])
	}
	if all, _ := repo.ListBySession(ctx, other.ID, 10); len(all) != 2 {
		t.Errorf("expected 2 decisions for the other session, got %d", len(all))
	}
}
