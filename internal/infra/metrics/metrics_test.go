//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"negotiation-agent/internal/domain/model"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNegotiationObserver_Counts(t *testing.T) {
	var o NegotiationObserver

	before := value(t, decisionsTotal.WithLabelValues("heuristic", "offer", "false"))
	o.DecisionMade(model.SourceHeuristic, model.ActionOffer, false)
	o.DecisionMade(model.SourceHeuristic, model.ActionOffer, false)
	if got := value(t, decisionsTotal.WithLabelValues("heuristic", "offer", "false")) - before; got != 2 {
		t.Fatalf("decisions delta = %v, want 2", got)
	}

	o.SessionFinished(model.OutcomeNone)
	if got := value(t, sessionsFinishedTotal.WithLabelValues("none")); got < 1 {
		t.Fatalf("empty outcome should be labelled none")
	}

	o.StageFallthrough(" Agent ", "timeout")
	if got := value(t, stageFallthroughTotal.WithLabelValues("agent", "timeout")); got < 1 {
		t.Fatalf("labels should be normalised")
	}
}

func TestMustRegister_Idempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
