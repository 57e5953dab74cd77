//go:build integration

package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"negotiation-agent/internal/config"
	"negotiation-agent/internal/domain/model"
)

// testDSNEnv points the suite at an existing database instead of a
// throwaway container.
const testDSNEnv = "NEGOTIATION_TEST_DATABASE_URL"

var testPool *pgxpool.Pool

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root containing go.mod")
}

// startPostgres runs a postgres:14 container on the host network and
// returns its id and DSN.
func startPostgres() (string, string, error) {
	const db, user, pass = "negotiation_test", "negotiator", "negotiator"
	cmd := exec.Command("docker", "run", "-d", "--rm", "--network", "host",
		"-e", "POSTGRES_DB="+db,
		"-e", "POSTGRES_USER="+user,
		"-e", "POSTGRES_PASSWORD="+pass,
		"postgres:14",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("docker run: %w", err)
	}
	id := strings.TrimSpace(out.String())
	if len(id) > 12 {
		id = id[:12]
	}
	return id, fmt.Sprintf("postgres://%s:%s@localhost:5432/%s?sslmode=disable", user, pass, db), nil
}

func connectWithRetry(ctx context.Context, dsn string, attempts int) (*pgxpool.Pool, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var pool *pgxpool.Pool
		if pool, err = Connect(ctx, config.DatabaseConfig{URL: dsn}); err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		log.Printf("waiting for negotiation test database (%d/%d): %v", i+1, attempts, err)
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	schema, err := os.ReadFile(filepath.Join(root, "deploy", "postgres", "init.sql"))
	if err != nil {
		return fmt.Errorf("read init.sql: %w", err)
	}
	_, err = pool.Exec(ctx, string(schema))
	return err
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn, container := os.Getenv(testDSNEnv), ""
	if dsn == "" {
		var err error
		if container, dsn, err = startPostgres(); err != nil {
			log.Fatalf("could not start postgres container: %v. Is Docker running? Or set %s.", err, testDSNEnv)
		}
	}
	stop := func() {
		if container == "" {
			return
		}
		if err := exec.Command("docker", "stop", container).Run(); err != nil {
			log.Printf("could not stop postgres container %s: %v", container, err)
		}
	}

	var err error
	if testPool, err = connectWithRetry(ctx, dsn, 15); err != nil {
		stop()
		log.Fatalf("negotiation test database unreachable: %v", err)
	}
	if err := applySchema(ctx, testPool); err != nil {
		testPool.Close()
		stop()
		log.Fatalf("could not apply schema: %v", err)
	}

	code := m.Run()
	testPool.Close()
	stop()
	os.Exit(code)
}

func cleanup(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
		TRUNCATE
			negotiation_messages, negotiation_sessions, negotiation_decisions
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}

// ---- fixtures ----

func testProduct() model.Product {
	return model.Product{
		Reference:   "https://www.olx.in/item/iphone-13-iid-1",
		Title:       "iPhone 13",
		ListedPrice: 60000,
		Category:    "Mobile Phones",
		Verified:    true,
	}
}

func newSession(t *testing.T, userID string) *model.NegotiationSession {
	t.Helper()
	s, err := model.NewNegotiationSession(uuid.NewString(), userID, testProduct(),
		model.UserParameters{TargetPrice: 45000, MaxBudget: 55000})
	if err != nil {
		t.Fatalf("NewNegotiationSession: %v", err)
	}
	return s
}

// seedSession stores an active session whose conversation alternates
// buyer and seller turns, starting with the buyer.
func seedSession(t *testing.T, userID string, turns ...string) *model.NegotiationSession {
	t.Helper()
	s := newSession(t, userID)
	for i, text := range turns {
		role := model.RoleBuyer
		if i%2 == 1 {
			role = model.RoleSeller
		}
		s.AddMessage(role, text)
	}
	if err := NewSessionRepo(testPool).Save(context.Background(), nil, s); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

// seedDecisions logs one counter-offer per round for s, one second apart
// from base, with prices rising by 1000 from 50000.
func seedDecisions(t *testing.T, s *model.NegotiationSession, rounds int, base time.Time) {
	t.Helper()
	repo := NewDecisionLogRepo(testPool)
	for i := 1; i <= rounds; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		e := model.DecisionLogEntry{
			ID:        ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String(),
			Timestamp: ts,
			SessionID: s.ID,
			UserID:    s.UserID,
			ProductID: s.Product.Reference,
			Round:     i,
			Decision: model.NegotiationDecision{
				Action:     model.ActionCounterOffer,
				PriceOffer: model.Price(int64(49000 + i*1000)),
				Confidence: 0.7,
				Source:     model.SourceHeuristic,
				Tactics:    []model.Tactic{model.TacticAnchoring},
			},
		}
		if err := repo.Append(context.Background(), e); err != nil {
			t.Fatalf("seed decision %d: %v", i, err)
		}
	}
}
