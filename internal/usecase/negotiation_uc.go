// File: internal/usecase/negotiation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/domain/ports/repository"
	"negotiation-agent/internal/infra/logging"
	"negotiation-agent/internal/negotiation"
)

// Compile-time check
var (
	_ NegotiationUseCase = (*negotiationUC)(nil)
	_ IdleSessionCloser  = (*negotiationUC)(nil)
)

type NegotiationUseCase interface {
	Start(ctx context.Context, req StartRequest) (*TurnResult, error)
	HandleSellerMessage(ctx context.Context, sessionID, text string) (*TurnResult, error)
	Cancel(ctx context.Context, sessionID string) (*model.NegotiationSession, error)
	Get(ctx context.Context, sessionID string) (*model.NegotiationSession, error)
	FindActiveByUser(ctx context.Context, userID string) (*model.NegotiationSession, error)
	Decisions(ctx context.Context, sessionID string, limit int) ([]model.DecisionLogEntry, error)
}

// IdleSessionCloser ends negotiations the seller stopped answering.
type IdleSessionCloser interface {
	CloseIdle(ctx context.Context, idleFor time.Duration) (int, error)
}

// StartRequest opens a negotiation. Reference is a listing URL or free-text
// description; Product skips catalog resolution when set.
type StartRequest struct {
	UserID    string
	Reference string
	Product   *model.Product
	Params    model.UserParameters
}

// TurnResult is what a caller gets back for one buyer turn.
type TurnResult struct {
	Session  *model.NegotiationSession
	Decision *model.NegotiationDecision // nil on handoff
	Reply    string
	Source   negotiation.RenderSource
	Handoff  negotiation.HandoffTrigger
}

// SessionObserver receives lifecycle events, typically for metrics.
type SessionObserver interface {
	SessionStarted()
	SessionFinished(outcome model.Outcome)
	HandoffTriggered(trigger string)
}

type nopSessionObserver struct{}

func (nopSessionObserver) SessionStarted()               {}
func (nopSessionObserver) SessionFinished(model.Outcome) {}
func (nopSessionObserver) HandoffTriggered(string)       {}

type Deps struct {
	Sessions     repository.SessionRepository
	DecisionLog  repository.DecisionLogRepository
	Tx           repository.TransactionManager // optional
	Catalog      adapter.ProductCatalog
	Transport    adapter.ConversationTransport
	Orchestrator *negotiation.Orchestrator
	Renderer     *negotiation.ResponseRenderer
	Handoff      *negotiation.HandoffDetector
	Locker       SessionLocker
	Observer     SessionObserver
	Logger       *zerolog.Logger
}

type Options struct {
	MaxMessages int // conversation length that ends the session as unresponsive
	Dev         bool
}

type negotiationUC struct {
	Deps
	maxMessages int
	dev         bool
}

func NewNegotiationUseCase(d Deps, opt Options) *negotiationUC {
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if d.Observer == nil {
		d.Observer = nopSessionObserver{}
	}
	if d.Logger == nil {
		l := zerolog.Nop()
		d.Logger = &l
	}
	if opt.MaxMessages <= 0 {
		opt.MaxMessages = 20
	}
	return &negotiationUC{Deps: d, maxMessages: opt.MaxMessages, dev: opt.Dev}
}

func lockKey(sessionID string) string { return "negotiation:lock:" + sessionID }

func (uc *negotiationUC) Start(ctx context.Context, req StartRequest) (*TurnResult, error) {
	defer logging.TraceDuration(uc.Logger, "NegotiationUC.Start")()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, &model.ValidationError{Field: "user_id", Reason: "is required"}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.Params.Approach == "" {
		req.Params.Approach = model.ApproachDiplomatic
	}
	if s, err := uc.Sessions.FindActiveByUser(ctx, nil, req.UserID); err == nil && s != nil {
		return nil, fmt.Errorf("user %s has active session %s: %w", req.UserID, s.ID, domain.ErrAlreadyExists)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	product, err := uc.resolveProduct(ctx, req)
	if err != nil {
		return nil, err
	}
	s, err := model.NewNegotiationSession(uuid.NewString(), req.UserID, product, req.Params)
	if err != nil {
		return nil, err
	}

	unlock, err := uc.Locker.Lock(ctx, lockKey(s.ID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	state := negotiation.TurnState{
		SessionID:     s.ID,
		UserID:        s.UserID,
		Product:       s.Product,
		Params:        s.Params,
		PreviousPhase: s.Phase,
	}
	res := uc.respond(ctx, s, state)
	uc.checkCompletion(s, *res.Decision, "")
	if err := uc.save(ctx, s); err != nil {
		return nil, err
	}
	uc.Observer.SessionStarted()
	uc.Logger.Info().
		Str("session_id", s.ID).
		Str("user_id", s.UserID).
		Str("product", s.Product.Title).
		Bool("verified", s.Product.Verified).
		Int64("target_price", s.Params.TargetPrice).
		Int64("max_budget", s.Params.MaxBudget).
		Msg("negotiation started")
	if s.Status != model.SessionActive {
		uc.Observer.SessionFinished(s.Outcome)
		uc.Logger.Info().Str("session_id", s.ID).Str("outcome", string(s.Outcome)).Msg("negotiation ended on opening turn")
	}

	uc.deliver(ctx, s.ID, res.Reply)
	return res, nil
}

func (uc *negotiationUC) resolveProduct(ctx context.Context, req StartRequest) (model.Product, error) {
	if req.Product != nil {
		p := *req.Product
		return p, p.Validate()
	}
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return model.Product{}, &model.ValidationError{Field: "reference", Reason: "is required"}
	}
	if uc.Catalog == nil {
		return model.Product{}, fmt.Errorf("no product catalog configured: %w", domain.ErrUpstreamUnavailable)
	}
	p, err := uc.Catalog.Resolve(ctx, ref)
	if err != nil {
		return model.Product{}, fmt.Errorf("resolve product: %w", err)
	}
	return p, p.Validate()
}

func (uc *negotiationUC) HandleSellerMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	defer logging.TraceDuration(uc.Logger, "NegotiationUC.HandleSellerMessage")()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.ValidationError{Field: "text", Reason: "is required"}
	}
	unlock, err := uc.Locker.Lock(ctx, lockKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	s, err := uc.Sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, domain.ErrSessionNotActive
	}

	log := logging.With(logging.WithSessID(ctx, s.ID), uc.Logger)
	log.Debug().Str("text", logging.Redact(text, uc.dev)).Msg("seller message")

	history := append([]model.ChatMessage(nil), s.Messages...)
	s.AddMessage(model.RoleSeller, text)

	var res *TurnResult
	if trigger, ok := uc.Handoff.Detect(s.Messages, text); ok {
		res = uc.handoff(s, trigger)
	} else {
		state := negotiation.TurnState{
			SessionID:     s.ID,
			UserID:        s.UserID,
			Product:       s.Product,
			Params:        s.Params,
			History:       history,
			SellerMessage: text,
			PreviousPhase: s.Phase,
			LastOffer:     s.LastOffer,
			LastAction:    s.LastAction,
		}
		res = uc.respond(ctx, s, state)
		uc.checkCompletion(s, *res.Decision, text)
	}

	if err := uc.save(ctx, s); err != nil {
		return nil, err
	}
	if s.Status != model.SessionActive {
		uc.Observer.SessionFinished(s.Outcome)
		log.Info().Str("status", string(s.Status)).Str("outcome", string(s.Outcome)).Msg("negotiation ended")
	}
	uc.deliver(ctx, s.ID, res.Reply)
	return res, nil
}

// respond decides and renders the buyer's turn and appends it to s.
func (uc *negotiationUC) respond(ctx context.Context, s *model.NegotiationSession, state negotiation.TurnState) *TurnResult {
	d := uc.Orchestrator.Decide(ctx, state)
	out := uc.Renderer.Render(ctx, negotiation.RenderInput{
		Decision:      d,
		Product:       s.Product,
		Params:        s.Params,
		SellerMessage: state.SellerMessage,
		Round:         state.Round(),
	})
	s.ApplyDecision(d)
	s.AddMessage(model.RoleBuyer, out.Text)
	return &TurnResult{Session: s, Decision: &d, Reply: out.Text, Source: out.Source}
}

func (uc *negotiationUC) handoff(s *model.NegotiationSession, trigger negotiation.HandoffTrigger) *TurnResult {
	msg := trigger.Message()
	s.Handoff(string(trigger))
	s.AddMessage(model.RoleBuyer, msg)
	uc.Observer.HandoffTriggered(string(trigger))
	return &TurnResult{Session: s, Reply: msg, Source: negotiation.RenderTemplate, Handoff: trigger}
}

func (uc *negotiationUC) checkCompletion(s *model.NegotiationSession, d model.NegotiationDecision, sellerText string) {
	switch {
	case d.Action == model.ActionAccept:
		s.Complete(model.OutcomeSuccess, agreedPrice(d, s, sellerText))
	case d.Action == model.ActionReject:
		s.Complete(model.OutcomeFailedPrice, nil)
	case len(s.Messages) > uc.maxMessages:
		s.Complete(model.OutcomeSellerUnresponsive, nil)
	}
}

// agreedPrice is the accepted buyer price, else the seller's stated price,
// else the last buyer offer, else the ask that was accepted: the latest
// price a seller named or the listed price.
func agreedPrice(d model.NegotiationDecision, s *model.NegotiationSession, sellerText string) *int64 {
	if d.PriceOffer != nil {
		return d.PriceOffer
	}
	if v, ok := negotiation.LastPrice(sellerText); ok {
		return model.Price(v)
	}
	if s.LastOffer != nil {
		return s.LastOffer
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role != model.RoleSeller {
			continue
		}
		if v, ok := negotiation.LastPrice(s.Messages[i].Content); ok {
			return model.Price(v)
		}
	}
	return model.Price(s.Product.ListedPrice)
}

func (uc *negotiationUC) save(ctx context.Context, s *model.NegotiationSession) error {
	if uc.Tx == nil {
		return uc.Sessions.Save(ctx, nil, s)
	}
	return uc.Tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return uc.Sessions.Save(ctx, tx, s)
	})
}

func (uc *negotiationUC) deliver(ctx context.Context, sessionID, text string) {
	if uc.Transport == nil || text == "" {
		return
	}
	if err := uc.Transport.Send(ctx, sessionID, text); err != nil {
		uc.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("deliver buyer message")
	}
}

func (uc *negotiationUC) Cancel(ctx context.Context, sessionID string) (*model.NegotiationSession, error) {
	unlock, err := uc.Locker.Lock(ctx, lockKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	s, err := uc.Sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, domain.ErrSessionNotActive
	}
	s.Cancel()
	if err := uc.save(ctx, s); err != nil {
		return nil, err
	}
	uc.Observer.SessionFinished(s.Outcome)
	return s, nil
}

const idleNotice = "Closing this negotiation since there has been no reply for a while."

// CloseIdle completes active sessions with no activity for idleFor as
// seller_unresponsive. Sessions touched meanwhile are left alone.
func (uc *negotiationUC) CloseIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	if idleFor <= 0 {
		return 0, &model.ValidationError{Field: "idle_for", Reason: "must be positive"}
	}
	cutoff := time.Now().Add(-idleFor)
	ids, err := uc.Sessions.ListIdle(ctx, nil, cutoff, 100)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}
	closed := 0
	var errs []error
	for _, id := range ids {
		ok, err := uc.closeIdle(ctx, id, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, errors.Join(errs...)
}

func (uc *negotiationUC) closeIdle(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock, err := uc.Locker.Lock(ctx, lockKey(id))
	if err != nil {
		return false, err
	}
	defer unlock()

	s, err := uc.Sessions.FindByID(ctx, nil, id)
	if err != nil {
		return false, err
	}
	if s.Status.Terminal() || !s.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	s.AddMessage(model.RoleSystem, idleNotice)
	s.Complete(model.OutcomeSellerUnresponsive, nil)
	if err := uc.save(ctx, s); err != nil {
		return false, err
	}
	uc.Observer.SessionFinished(s.Outcome)
	uc.Logger.Info().Str("session_id", s.ID).Msg("idle negotiation closed")
	uc.deliver(ctx, s.ID, idleNotice)
	return true, nil
}

func (uc *negotiationUC) Get(ctx context.Context, sessionID string) (*model.NegotiationSession, error) {
	return uc.Sessions.FindByID(ctx, nil, sessionID)
}

func (uc *negotiationUC) FindActiveByUser(ctx context.Context, userID string) (*model.NegotiationSession, error) {
	return uc.Sessions.FindActiveByUser(ctx, nil, userID)
}

func (uc *negotiationUC) Decisions(ctx context.Context, sessionID string, limit int) ([]model.DecisionLogEntry, error) {
	if uc.DecisionLog == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.DecisionLog.ListBySession(ctx, sessionID, limit)
}
