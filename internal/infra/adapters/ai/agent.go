package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/negotiation"
)

var _ adapter.NegotiationAgent = (*LLMAgent)(nil)

const agentSystemPrompt = `You negotiate on behalf of a buyer on an online marketplace.
You write as the buyer, a real person. Never say or imply that you are automated.
Never offer below the target price or above the maximum budget.
Reply with a single JSON object and nothing else:
{"action_type": "offer|counter_offer|accept|reject|question|final_offer",
 "price_offer": 0, "confidence": 0.0, "message": "...", "reasoning": "...",
 "tactics_used": ["..."], "next_steps": ["..."]}`

// LLMAgent is the primary negotiation agent backed by a chat model.
// Conversation history is trimmed to a token budget, newest first.
type LLMAgent struct {
	ai       adapter.AIServiceAdapter
	model    string
	currency string
	budget   int
	tokens   *TokenCounter
}

func NewLLMAgent(ai adapter.AIServiceAdapter, model, currency string, historyBudget int, tokens *TokenCounter) *LLMAgent {
	if historyBudget <= 0 {
		historyBudget = 1500
	}
	if currency == "" {
		currency = "₹"
	}
	return &LLMAgent{ai: ai, model: model, currency: currency, budget: historyBudget, tokens: tokens}
}

type agentReply struct {
	Action     string   `json:"action_type"`
	PriceOffer *float64 `json:"price_offer"`
	Confidence float64  `json:"confidence"`
	Message    string   `json:"message"`
	Reasoning  string   `json:"reasoning"`
	Tactics    []string `json:"tactics_used"`
	NextSteps  []string `json:"next_steps"`
}

func (a *LLMAgent) Generate(ctx context.Context, in adapter.AgentContext) (model.NegotiationDecision, error) {
	msgs := []adapter.Message{
		{Role: "system", Content: agentSystemPrompt},
		{Role: "user", Content: a.prompt(in)},
	}
	raw, err := a.ai.Chat(ctx, a.model, msgs)
	if err != nil {
		return model.NegotiationDecision{}, err
	}
	return parseAgentReply(raw)
}

func parseAgentReply(raw string) (model.NegotiationDecision, error) {
	obj, ok := negotiation.ExtractJSON(raw)
	if !ok {
		return model.NegotiationDecision{}, fmt.Errorf("agent reply has no json: %w", domain.ErrMalformedResponse)
	}
	var r agentReply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return model.NegotiationDecision{}, fmt.Errorf("agent reply: %v: %w", err, domain.ErrMalformedResponse)
	}
	action := model.ActionType(strings.ToLower(strings.TrimSpace(r.Action)))
	if !action.Valid() {
		return model.NegotiationDecision{}, fmt.Errorf("agent action %q: %w", r.Action, domain.ErrMalformedResponse)
	}

	d := model.NegotiationDecision{
		Action:     action,
		Confidence: r.Confidence,
		Message:    strings.TrimSpace(r.Message),
		Reasoning:  strings.TrimSpace(r.Reasoning),
		NextSteps:  r.NextSteps,
		Tactics:    make([]model.Tactic, 0, len(r.Tactics)),
	}
	if r.PriceOffer != nil && *r.PriceOffer > 0 {
		d.PriceOffer = model.Price(int64(math.Round(*r.PriceOffer)))
	}
	for _, t := range r.Tactics {
		if tag := negotiation.NormalizeTactic(t); tag != "" {
			d.Tactics = append(d.Tactics, tag)
		}
	}
	return d, nil
}

func (a *LLMAgent) prompt(in adapter.AgentContext) string {
	price := func(v int64) string { return negotiation.FormatPrice(a.currency, v) }
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s (%s), listed at %s", in.Product.Title, in.Product.Category, price(in.Product.ListedPrice))
	if in.Product.Condition != "" {
		fmt.Fprintf(&b, ", condition %s", in.Product.Condition)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Buyer target: %s. Maximum budget: %s. Approach: %s.\n",
		price(in.Params.TargetPrice), price(in.Params.MaxBudget), in.Params.Approach)
	if in.Market != nil {
		fmt.Fprintf(&b, "Market: estimated value %s (range %s to %s), position %s.\n",
			price(in.Market.EstimatedValue), price(in.Market.Range.Min), price(in.Market.Range.Max), in.Market.Position)
	}
	fmt.Fprintf(&b, "Round %d, phase %s, seller sentiment %s", in.Round, in.Phase, in.Signals.Sentiment)
	if len(in.Signals.Tactics) > 0 {
		fmt.Fprintf(&b, ", seller tactics %v", in.Signals.Tactics)
	}
	b.WriteString(".\n")
	if in.SuggestedOffer > 0 {
		fmt.Fprintf(&b, "Suggested next offer: %s. Suggested tactics: %v.\n", price(in.SuggestedOffer), in.Tactics)
	}

	if hist := a.trimHistory(in.History); len(hist) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range hist {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	if in.SellerMessage != "" {
		fmt.Fprintf(&b, "\nSeller's latest message: %q\n", in.SellerMessage)
	} else {
		b.WriteString("\nThe seller has not written yet; open the negotiation.\n")
	}
	return b.String()
}

// trimHistory keeps the newest messages that fit the token budget.
func (a *LLMAgent) trimHistory(hist []model.ChatMessage) []model.ChatMessage {
	used := 0
	start := len(hist)
	for i := len(hist) - 1; i >= 0; i-- {
		n := a.tokens.Count(a.model, hist[i].Content) + 4
		if used+n > a.budget {
			break
		}
		used += n
		start = i
	}
	return hist[start:]
}
