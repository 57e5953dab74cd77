package negotiation

import (
	"fmt"

	"negotiation-agent/internal/domain/model"
)

// TurnState is everything the core needs to decide one buyer turn.
type TurnState struct {
	SessionID     string
	UserID        string
	Product       model.Product
	Params        model.UserParameters
	History       []model.ChatMessage // excludes SellerMessage
	SellerMessage string              // empty when the buyer opens
	PreviousPhase model.Phase
	LastOffer     *int64
	LastAction    model.ActionType
}

// Round is the 1-based count of seller messages including the current one.
func (t TurnState) Round() int {
	n := 0
	for _, m := range t.History {
		if m.Role == model.RoleSeller {
			n++
		}
	}
	if t.SellerMessage != "" {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Assessment is the heuristic view of a turn, shared with the agent stage.
type Assessment struct {
	Classification
	Round    int
	Ask      int64 // seller's current asking price
	AskNamed bool  // the current message states a price
	Computed int64 // strategy output before capping at the ask
	Offer    int64
	GapPct   float64
	Posture  Posture
	Tactics  []model.Tactic
	Bucket   Bucket
	Market   model.MarketAnalysis
}

// HeuristicEngine composes classifier, strategy and selector into a
// deterministic decision.
type HeuristicEngine struct {
	classifier *PhaseClassifier
	strategy   OfferStrategy
	selector   TacticSelector
	buckets    *BucketDetector
	templates  *TemplateSet
	currency   string
}

func NewHeuristicEngine(lex Lexicon, selector TacticSelector, templates *TemplateSet, currency string, window int) *HeuristicEngine {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if currency == "" {
		currency = "₹"
	}
	return &HeuristicEngine{
		classifier: NewPhaseClassifier(lex, window),
		selector:   selector,
		buckets:    NewBucketDetector(lex),
		templates:  templates,
		currency:   currency,
	}
}

func (h *HeuristicEngine) Assess(turn TurnState, market model.MarketAnalysis) Assessment {
	p := turn.Params
	a := Assessment{
		Classification: h.classifier.Classify(turn.History, turn.SellerMessage, turn.PreviousPhase),
		Round:          turn.Round(),
		Bucket:         h.buckets.Detect(turn.SellerMessage),
		Market:         market,
	}
	if v, ok := LastPrice(turn.SellerMessage); ok {
		a.Ask, a.AskNamed = v, true
	} else {
		a.Ask = previousAsk(turn)
	}
	var floor int64
	if turn.LastOffer != nil {
		floor = *turn.LastOffer
	}
	a.Computed = h.strategy.Next(OfferInput{
		Params:    p,
		Listed:    a.Ask,
		FairValue: market.EstimatedValue,
		Round:     a.Round,
		Floor:     floor,
	})
	a.Offer = a.Computed
	if a.Ask >= p.TargetPrice && a.Offer > a.Ask {
		a.Offer = a.Ask
	}
	a.GapPct = GapPercent(a.Ask, a.Offer)
	a.Posture = h.selector.Posture(a.GapPct)
	a.Tactics = h.selector.Select(a.GapPct, a.Signals)
	return a
}

// Decide maps an assessment to an action and price.
func (h *HeuristicEngine) Decide(turn TurnState, a Assessment) model.NegotiationDecision {
	p := turn.Params
	sig := a.Signals

	var d model.NegotiationDecision
	switch {
	case a.Ask > 0 && a.Ask <= p.TargetPrice:
		d = acceptAt(a.Ask, p, "asking price is at or below target")
	case turn.SellerMessage == "":
		d = priced(model.ActionOffer, a.Offer, 0.75, "opening offer")
	case sig.Has(model.SellerAcceptance) && !sig.Has(model.SellerRejection) && turn.LastOffer != nil &&
		(!a.AskNamed || a.Ask <= *turn.LastOffer):
		d = acceptAt(p.Clamp(*turn.LastOffer), p, "seller agreed to our last offer")
	case a.Ask > 0 && a.Ask <= a.Computed && a.Ask <= p.MaxBudget:
		d = acceptAt(a.Ask, p, "asking price is within our planned offer")
	case sig.Has(model.SellerUltimatum) && a.Ask > 0 && a.Ask <= p.MaxBudget:
		d = acceptAt(a.Ask, p, "seller's final price fits the budget")
	case sig.Has(model.SellerUltimatum) || (a.Phase == model.PhaseClosing && a.Ask > p.MaxBudget):
		if turn.LastAction == model.ActionFinalOffer {
			d = model.NegotiationDecision{Action: model.ActionReject, Confidence: 0.8, Reasoning: "seller holds above budget after our final offer"}
		} else {
			final := h.strategy.Next(OfferInput{Params: p, Listed: a.Ask, FairValue: a.Market.EstimatedValue, Round: 5, Floor: a.Offer})
			d = priced(model.ActionFinalOffer, final, 0.6, "seller is firm above budget")
		}
	case sig.Has(model.SellerRejection):
		bumped := h.strategy.Bump(a.Offer, p)
		if a.Ask >= p.TargetPrice && bumped > a.Ask {
			bumped = a.Ask
		}
		d = priced(model.ActionCounterOffer, bumped, 0.7, "seller rejected; conceding a step")
	case a.Round <= 2:
		d = priced(model.ActionOffer, a.Offer, 0.75, "early round offer")
	default:
		d = priced(model.ActionCounterOffer, a.Offer, 0.7, "staged counter-offer")
	}

	d.Source = model.SourceHeuristic
	d.Phase = a.Phase
	d.Tactics = append([]model.Tactic(nil), a.Tactics...)
	d.NextSteps = nextSteps(d.Action)
	d.Reasoning = fmt.Sprintf("%s (phase=%s posture=%s sentiment=%s ask=%d gap=%.1f%%)",
		d.Reasoning, a.Phase, a.Posture, sig.Sentiment, a.Ask, a.GapPct)
	d.Message = h.Draft(d, turn, a.Bucket, a.Round)
	return d
}

// Draft renders the deterministic template text for a decision.
func (h *HeuristicEngine) Draft(d model.NegotiationDecision, turn TurnState, bucket Bucket, round int) string {
	return renderTemplate(h.templates, h.currency, d, turn.Params.Approach, bucket, round, turn.Product.Title)
}

// DefaultDecision substitutes for any internal failure of the heuristic stage.
func DefaultDecision(phase model.Phase) model.NegotiationDecision {
	return model.NegotiationDecision{
		Action:     model.ActionQuestion,
		Confidence: 0.6,
		Message:    EmergencyMessage,
		Reasoning:  "heuristic engine failed; asking a neutral question",
		Tactics:    []model.Tactic{model.TacticBasicInquiry},
		NextSteps:  []string{"await_seller_response"},
		Source:     model.SourceHeuristicDefault,
		Phase:      phase,
	}
}

// EmergencyDecision is the last fallback tier and cannot fail.
func EmergencyDecision() model.NegotiationDecision {
	return model.NegotiationDecision{
		Action:     model.ActionQuestion,
		Confidence: 0.5,
		Message:    EmergencyMessage,
		Reasoning:  "all decision sources unavailable",
		Tactics:    []model.Tactic{model.TacticBasicInquiry},
		NextSteps:  []string{"await_seller_response"},
		Source:     model.SourceEmergency,
	}
}

func priced(action model.ActionType, price int64, confidence float64, reason string) model.NegotiationDecision {
	return model.NegotiationDecision{Action: action, PriceOffer: model.Price(price), Confidence: confidence, Reasoning: reason}
}

// acceptAt accepts the seller's price; below target there is no buyer
// price to state, so the offer is left empty.
func acceptAt(ask int64, p model.UserParameters, reason string) model.NegotiationDecision {
	d := model.NegotiationDecision{Action: model.ActionAccept, Confidence: 0.9, Reasoning: reason}
	if ask >= p.TargetPrice && ask <= p.MaxBudget {
		d.PriceOffer = model.Price(ask)
	}
	return d
}

func nextSteps(a model.ActionType) []string {
	switch a {
	case model.ActionAccept:
		return []string{"confirm_pickup_details", "arrange_payment"}
	case model.ActionReject:
		return []string{"end_negotiation"}
	case model.ActionFinalOffer:
		return []string{"await_final_response"}
	case model.ActionCounterOffer:
		return []string{"await_counter_response"}
	default:
		return []string{"await_seller_response"}
	}
}

// previousAsk is the latest price named in earlier seller messages, else
// the listed price.
func previousAsk(turn TurnState) int64 {
	for i := len(turn.History) - 1; i >= 0; i-- {
		m := turn.History[i]
		if m.Role != model.RoleSeller {
			continue
		}
		if v, ok := LastPrice(m.Content); ok {
			return v
		}
	}
	return turn.Product.ListedPrice
}
