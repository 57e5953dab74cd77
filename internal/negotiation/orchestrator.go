package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/domain/ports/repository"
)

type OrchestratorConfig struct {
	StageTimeout   time.Duration
	EnhanceTimeout time.Duration
	MarketTimeout  time.Duration
}

func (c *OrchestratorConfig) defaults() {
	if c.StageTimeout <= 0 {
		c.StageTimeout = 8 * time.Second
	}
	if c.EnhanceTimeout <= 0 {
		c.EnhanceTimeout = 5 * time.Second
	}
	if c.MarketTimeout <= 0 {
		c.MarketTimeout = 2 * time.Second
	}
}

// Observer receives decision events, typically for metrics.
type Observer interface {
	DecisionMade(source model.DecisionSource, action model.ActionType, enhanced bool)
	StageFallthrough(stage, reason string)
}

type nopObserver struct{}

func (nopObserver) DecisionMade(model.DecisionSource, model.ActionType, bool) {}
func (nopObserver) StageFallthrough(string, string) {}

// Orchestrator runs the decision chain for one seller turn. Decide always
// returns a well-formed decision and never panics.
type Orchestrator struct {
	cfg       OrchestratorConfig
	engine    *HeuristicEngine
	stages    []Stage
	enhancer  *Enhancer
	market    adapter.MarketDataProvider
	decisions repository.DecisionLogRepository
	obs       Observer
	log       *zerolog.Logger
	now       func() time.Time
}

// NewOrchestrator wires the chain. stages run in order; engine supplies the
// shared assessment; enhancer, decisions and obs may be nil.
func NewOrchestrator(
	cfg OrchestratorConfig,
	engine *HeuristicEngine,
	stages []Stage,
	enhancer *Enhancer,
	market adapter.MarketDataProvider,
	decisions repository.DecisionLogRepository,
	obs Observer,
	logger *zerolog.Logger,
) *Orchestrator {
	cfg.defaults()
	if obs == nil {
		obs = nopObserver{}
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Orchestrator{
		cfg:       cfg,
		engine:    engine,
		stages:    stages,
		enhancer:  enhancer,
		market:    market,
		decisions: decisions,
		obs:       obs,
		log:       logger,
		now:       time.Now,
	}
}

// Decide produces the buyer's next decision and logs it.
func (o *Orchestrator) Decide(ctx context.Context, state TurnState) model.NegotiationDecision {
	d := o.run(ctx, state)
	o.record(ctx, state, d)
	return d
}

func (o *Orchestrator) run(ctx context.Context, state TurnState) (d model.NegotiationDecision) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Str("session_id", state.SessionID).Interface("panic", r).Msg("decision chain panicked")
			d = EmergencyDecision()
			d.Phase = state.PreviousPhase
		}
	}()

	turn := Turn{State: state, Market: o.prepareMarket(ctx, state)}
	if turn.Market != nil {
		turn.Assessment = o.assess(state, *turn.Market)
	}

	for _, st := range o.stages {
		got, err := callWithTimeout(ctx, o.cfg.StageTimeout, func(ctx context.Context) (model.NegotiationDecision, error) {
			return st.Decide(ctx, turn)
		})
		if err == nil {
			err = got.Validate(state.Params)
		}
		if err != nil {
			o.fallthroughStage(state, st.Name(), err)
			continue
		}
		return o.enhance(ctx, got, turn)
	}

	d = EmergencyDecision()
	d.Phase = state.PreviousPhase
	if turn.Assessment != nil {
		d.Phase = turn.Assessment.Phase
	}
	return d
}

func (o *Orchestrator) prepareMarket(ctx context.Context, state TurnState) *model.MarketAnalysis {
	if o.market == nil {
		return nil
	}
	q := adapter.MarketQuery{
		Category:    state.Product.Category,
		Title:       state.Product.Title,
		ListedPrice: state.Product.ListedPrice,
	}
	m, err := callWithTimeout(ctx, o.cfg.MarketTimeout, func(ctx context.Context) (model.MarketAnalysis, error) {
		return o.market.Analyze(ctx, q)
	})
	if err != nil {
		o.fallthroughStage(state, "market", err)
		return nil
	}
	return &m
}

// assess returns nil when the heuristic components fail; the heuristic
// stage then recomputes and substitutes its default.
func (o *Orchestrator) assess(state TurnState, market model.MarketAnalysis) (a *Assessment) {
	if o.engine == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Warn().Str("session_id", state.SessionID).Interface("panic", r).Msg("assessment failed")
			a = nil
		}
	}()
	got := o.engine.Assess(state, market)
	return &got
}

func (o *Orchestrator) enhance(ctx context.Context, d model.NegotiationDecision, turn Turn) model.NegotiationDecision {
	if o.enhancer == nil {
		return d
	}
	got, err := callWithTimeout(ctx, o.cfg.EnhanceTimeout, func(ctx context.Context) (model.NegotiationDecision, error) {
		return o.enhancer.Enhance(ctx, d, turn)
	})
	if err == nil {
		err = got.Validate(turn.State.Params)
	}
	if err != nil {
		o.log.Debug().Str("session_id", turn.State.SessionID).Err(err).Msg("enhancement skipped")
		return d
	}
	return got
}

func (o *Orchestrator) fallthroughStage(state TurnState, stage string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrStageUnavailable):
		reason = "unavailable"
	case errors.Is(err, ErrLowConfidence):
		reason = "low_confidence"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	}
	o.obs.StageFallthrough(stage, reason)
	o.log.Debug().Str("session_id", state.SessionID).Str("stage", stage).Str("reason", reason).Err(err).Msg("decision stage fell through")
}

func (o *Orchestrator) record(ctx context.Context, state TurnState, d model.NegotiationDecision) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("decision log failed")
		}
	}()
	entry := model.DecisionLogEntry{
		ID:        ulid.Make().String(),
		Timestamp: o.now().UTC(),
		SessionID: state.SessionID,
		UserID:    state.UserID,
		ProductID: state.Product.ID(),
		Round:     state.Round(),
		Decision:  d,
	}

	ev := o.log.Info().
		Str("decision_id", entry.ID).
		Str("session_id", entry.SessionID).
		Str("user_id", entry.UserID).
		Str("product_id", entry.ProductID).
		Int("round", entry.Round).
		Str("source", string(d.Source)).
		Str("action", string(d.Action)).
		Float64("confidence", d.Confidence).
		Str("phase", string(d.Phase)).
		Bool("enhanced", d.Enhanced)
	if d.PriceOffer != nil {
		ev = ev.Int64("price_offer", *d.PriceOffer)
	}
	ev.Msg("negotiation decision")

	o.obs.DecisionMade(d.Source, d.Action, d.Enhanced)
	if o.decisions == nil {
		return
	}
	if err := o.decisions.Append(ctx, entry); err != nil {
		o.log.Warn().Err(err).Str("session_id", entry.SessionID).Msg("persist decision log")
	}
}

// callWithTimeout runs fn with a deadline and returns as soon as the
// deadline passes, even if fn ignores its context. Panics become errors.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
