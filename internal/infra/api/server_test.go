//go:build !integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"negotiation-agent/internal/config"
	"negotiation-agent/internal/infra/api"
	"negotiation-agent/internal/infra/api/apiv1"
	"negotiation-agent/internal/infra/db/memory"
	"negotiation-agent/internal/infra/market"
	"negotiation-agent/internal/negotiation"
	"negotiation-agent/internal/usecase"
)

// -------------------- test helpers --------------------

func newRouter(t *testing.T, limiter api.RateLimiter, limit int) http.Handler {
	t.Helper()
	lex := negotiation.DefaultLexicon()
	engine := negotiation.NewHeuristicEngine(lex, negotiation.NewTacticSelector(30, 15), nil, "₹", 0)
	provider := market.NewLocalProvider(negotiation.NewMarketEstimator(negotiation.DefaultCategoryTable(), nil))
	decisions := memory.NewDecisionLogRepo()
	orch := negotiation.NewOrchestrator(negotiation.OrchestratorConfig{}, engine,
		[]negotiation.Stage{negotiation.NewHeuristicStage(engine)}, nil, provider, decisions, nil, nil)

	uc := usecase.NewNegotiationUseCase(usecase.Deps{
		Sessions:     memory.NewSessionRepo(),
		DecisionLog:  decisions,
		Orchestrator: orch,
		Renderer:     negotiation.NewResponseRenderer(nil, lex, nil, "₹", time.Second, nil),
		Handoff:      negotiation.NewHandoffDetector(lex),
	}, usecase.Options{})

	cfg := config.HTTPConfig{RateLimit: limit, RateLimitWindow: time.Minute, WriteTimeout: 5 * time.Second}
	return api.NewRouter(cfg, uc, limiter, nil)
}

const startBody = `{"user_id":"u1","product":{"title":"iPhone 13","listed_price":60000,"category":"Mobile Phones"},` +
	`"target_price":45000,"max_budget":55000}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTurn(t *testing.T, rec *httptest.ResponseRecorder) apiv1.Turn {
	t.Helper()
	var turn apiv1.Turn
	if err := json.NewDecoder(rec.Body).Decode(&turn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return turn
}

// -------------------- tests --------------------

func TestNegotiation_FullFlow(t *testing.T) {
	h := newRouter(t, nil, 0)

	rec := do(t, h, http.MethodPost, "/api/v1/negotiations", startBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
	turn := decodeTurn(t, rec)
	id := turn.Session.ID
	if id == "" || !strings.Contains(turn.Reply, "₹49,500") || turn.Decision == nil || turn.Decision.Price() != 49500 {
		t.Fatalf("unexpected opening turn: %+v", turn)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/negotiations/"+id+"/messages", `{"text":"Okay deal"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	turn = decodeTurn(t, rec)
	if turn.Session.Status != "completed" || turn.Session.Outcome != "success" ||
		turn.Session.FinalPrice == nil || *turn.Session.FinalPrice != 49500 {
		t.Fatalf("unexpected closing turn: %+v", turn.Session)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/negotiations/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var sess apiv1.Session
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sess.Messages) != 3 || sess.Messages[1].Role != "seller" {
		t.Fatalf("unexpected transcript: %+v", sess.Messages)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/negotiations/"+id+"/decisions?limit=10", "")
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil || len(list.Items) != 2 {
		t.Fatalf("want 2 decisions, got %d (%v)", len(list.Items), err)
	}

	// terminal sessions refuse further input
	rec = do(t, h, http.MethodPost, "/api/v1/negotiations/"+id+"/messages", `{"text":"hello?"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/negotiations/"+id+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("want 409 on cancel of finished session, got %d", rec.Code)
	}
}

func TestNegotiation_ErrorMapping(t *testing.T) {
	h := newRouter(t, nil, 0)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", http.MethodPost, "/api/v1/negotiations", `{"user_id":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/negotiations", `{"user":"x"}`, http.StatusBadRequest},
		{"target above budget", http.MethodPost, "/api/v1/negotiations",
			`{"user_id":"u2","product":{"title":"Sofa","listed_price":20000},"target_price":30000,"max_budget":25000}`, http.StatusBadRequest},
		{"no catalog configured", http.MethodPost, "/api/v1/negotiations",
			`{"user_id":"u3","reference":"https://olx.in/item/sofa","target_price":10000,"max_budget":15000}`, http.StatusServiceUnavailable},
		{"unknown session", http.MethodGet, "/api/v1/negotiations/nope", "", http.StatusNotFound},
		{"message to unknown session", http.MethodPost, "/api/v1/negotiations/nope/messages", `{"text":"hi"}`, http.StatusNotFound},
		{"empty seller text", http.MethodPost, "/api/v1/negotiations/nope/messages", `{"text":"  "}`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/negotiations/nope/decisions?limit=x", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("want %d, got %d, body=%s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNegotiation_SecondActiveSessionConflicts(t *testing.T) {
	h := newRouter(t, nil, 0)
	if rec := do(t, h, http.MethodPost, "/api/v1/negotiations", startBody); rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/negotiations", startBody); rec.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", rec.Code)
	}
}

type countingLimiter struct{ n int }

func (c *countingLimiter) Allow(_ context.Context, _ string, limit int, _ time.Duration) (bool, error) {
	c.n++
	return c.n <= limit, nil
}

func TestRateLimit(t *testing.T) {
	h := newRouter(t, &countingLimiter{}, 1)

	if rec := do(t, h, http.MethodGet, "/api/v1/negotiations/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/v1/negotiations/nope", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("want 429 with Retry-After, got %d", rec.Code)
	}
	// health and metrics are outside the limited group
	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
