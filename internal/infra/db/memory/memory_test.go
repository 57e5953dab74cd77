//go:build !integration

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
)

func newSession(t *testing.T, id, user string) *model.NegotiationSession {
	t.Helper()
	s, err := model.NewNegotiationSession(id, user,
		model.Product{Title: "Sofa", ListedPrice: 20000},
		model.UserParameters{TargetPrice: 15000, MaxBudget: 18000})
	if err != nil {
		t.Fatalf("NewNegotiationSession: %v", err)
	}
	return s
}

func TestSessionRepo_SaveIsolatesAndKeepsMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()
	s := newSession(t, "s1", "u1")
	s.AddMessage(model.RoleBuyer, "hello")
	if err := repo.Save(ctx, nil, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Rewriting a stored message must not reach storage.
	s.Messages[0].Content = "edited"
	s.AddMessage(model.RoleSeller, "hi")
	if err := repo.Save(ctx, nil, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.FindByID(ctx, nil, "s1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "hello" || got.Messages[1].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}

	got.Messages[1].Content = "mutated"
	again, _ := repo.FindByID(ctx, nil, "s1")
	if again.Messages[1].Content != "hi" {
		t.Fatalf("FindByID returned shared state")
	}
}

func TestSessionRepo_FindActiveByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	old := newSession(t, "old", "u1")
	old.CreatedAt = time.Now().Add(-time.Hour)
	newer := newSession(t, "new", "u1")
	done := newSession(t, "done", "u1")
	done.Complete(model.OutcomeSuccess, nil)
	for _, s := range []*model.NegotiationSession{old, newer, done} {
		if err := repo.Save(ctx, nil, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := repo.FindActiveByUser(ctx, nil, "u1")
	if err != nil {
		t.Fatalf("FindActiveByUser: %v", err)
	}
	if got.ID != "new" {
		t.Fatalf("expected newest active session, got %s", got.ID)
	}
	if _, err := repo.FindActiveByUser(ctx, nil, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepo_ListIdle(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()
	now := time.Now()

	stale := newSession(t, "stale", "u1")
	stale.UpdatedAt = now.Add(-2 * time.Hour)
	staler := newSession(t, "staler", "u2")
	staler.UpdatedAt = now.Add(-3 * time.Hour)
	fresh := newSession(t, "fresh", "u3")
	closed := newSession(t, "closed", "u4")
	closed.Cancel()
	closed.UpdatedAt = now.Add(-5 * time.Hour)
	for _, s := range []*model.NegotiationSession{stale, staler, fresh, closed} {
		if err := repo.Save(ctx, nil, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	ids, err := repo.ListIdle(ctx, nil, now.Add(-time.Hour), 0)
	if err != nil {
		t.Fatalf("ListIdle: %v", err)
	}
	if len(ids) != 2 || ids[0] != "staler" || ids[1] != "stale" {
		t.Fatalf("unexpected idle ids: %v", ids)
	}
	ids, _ = repo.ListIdle(ctx, nil, now.Add(-time.Hour), 1)
	if len(ids) != 1 || ids[0] != "staler" {
		t.Fatalf("limit not applied: %v", ids)
	}
}

func TestDecisionLogRepo_ListBySession(t *testing.T) {
	ctx := context.Background()
	repo := NewDecisionLogRepo()
	for i := 1; i <= 5; i++ {
		_ = repo.Append(ctx, model.DecisionLogEntry{SessionID: "s1", Round: i})
	}
	_ = repo.Append(ctx, model.DecisionLogEntry{SessionID: "s2", Round: 1})

	got, _ := repo.ListBySession(ctx, "s1", 2)
	if len(got) != 2 || got[0].Round != 4 || got[1].Round != 5 {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
