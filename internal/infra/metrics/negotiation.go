// File: internal/infra/metrics/negotiation.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"negotiation-agent/internal/domain/model"
)

func init() {
	register(
		decisionsTotal,
		stageFallthroughTotal,
		sessionsStartedTotal,
		sessionsFinishedTotal,
		handoffsTotal,
	)
}

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiation_decisions_total",
			Help: "Decisions returned by the orchestrator, by source and action.",
		},
		[]string{"source", "action", "enhanced"},
	)

	stageFallthroughTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiation_stage_fallthrough_total",
			Help: "Times a decision stage was skipped in favour of the next one.",
		},
		[]string{"stage", "reason"}, // reason: 'error', 'timeout', 'low_confidence', ...
	)

	sessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "negotiation_sessions_started_total",
			Help: "Negotiation sessions opened.",
		},
	)

	sessionsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiation_sessions_finished_total",
			Help: "Negotiation sessions that reached a terminal state, by outcome.",
		},
		[]string{"outcome"},
	)

	handoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiation_handoffs_total",
			Help: "Sessions handed to a human, by trigger.",
		},
		[]string{"trigger"},
	)
)

// NegotiationObserver feeds orchestrator and session events into Prometheus.
type NegotiationObserver struct{}

func (NegotiationObserver) DecisionMade(source model.DecisionSource, action model.ActionType, enhanced bool) {
	decisionsTotal.WithLabelValues(norm(string(source)), norm(string(action)), strconv.FormatBool(enhanced)).Inc()
}

func (NegotiationObserver) StageFallthrough(stage, reason string) {
	stageFallthroughTotal.WithLabelValues(norm(stage), norm(reason)).Inc()
}

func (NegotiationObserver) SessionStarted() { sessionsStartedTotal.Inc() }

func (NegotiationObserver) SessionFinished(outcome model.Outcome) {
	sessionsFinishedTotal.WithLabelValues(norm(string(outcome))).Inc()
}

func (NegotiationObserver) HandoffTriggered(trigger string) {
	handoffsTotal.WithLabelValues(norm(trigger)).Inc()
}
