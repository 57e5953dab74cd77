package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
)

const (
	maxEnhancementChars = 100
	maxRawEnhancement   = 200
	maxConfidenceDelta  = 0.2
	maxExtraTactics     = 2
)

type enhancement struct {
	MessageEnhancement   string   `json:"message_enhancement"`
	StrategyTips         []string `json:"strategy_tips"`
	ConfidenceAdjustment float64  `json:"confidence_adjustment"`
}

// Enhancer asks a secondary text model for tone and strategy hints and
// merges them into an existing decision. It never touches the price.
type Enhancer struct {
	completer  adapter.TextCompleter
	disclosure termSet
	currency   string
}

func NewEnhancer(completer adapter.TextCompleter, lex Lexicon, currency string) *Enhancer {
	if currency == "" {
		currency = "₹"
	}
	return &Enhancer{completer: completer, disclosure: compileTerms(lex.Disclosure), currency: currency}
}

func (e *Enhancer) Enhance(ctx context.Context, d model.NegotiationDecision, turn Turn) (model.NegotiationDecision, error) {
	if e == nil || e.completer == nil {
		return d, ErrStageUnavailable
	}
	raw, err := e.completer.Complete(ctx, e.prompt(d, turn))
	if err != nil {
		return d, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return d, fmt.Errorf("empty enhancement")
	}

	var enh enhancement
	if obj, ok := ExtractJSON(raw); !ok || json.Unmarshal([]byte(obj), &enh) != nil {
		enh = enhancement{MessageEnhancement: truncateText(raw, maxRawEnhancement), ConfidenceAdjustment: 0.1}
	}
	return e.merge(d, enh, turn.State.Params), nil
}

func (e *Enhancer) merge(d model.NegotiationDecision, enh enhancement, p model.UserParameters) model.NegotiationDecision {
	out := d
	out.Tactics = append([]model.Tactic(nil), d.Tactics...)
	out.NextSteps = append([]string(nil), d.NextSteps...)

	if text := strings.TrimSpace(enh.MessageEnhancement); text != "" && e.safe(text, d) {
		out.Message = strings.TrimSpace(out.Message + " " + truncateText(text, maxEnhancementChars))
	}

	delta := enh.ConfidenceAdjustment
	if delta > maxConfidenceDelta {
		delta = maxConfidenceDelta
	}
	if delta < -maxConfidenceDelta {
		delta = -maxConfidenceDelta
	}
	out.Confidence = clamp01(d.Confidence + delta)

	added := 0
	for _, tip := range enh.StrategyTips {
		if added == maxExtraTactics {
			break
		}
		t := NormalizeTactic(tip)
		if t == "" || hasTactic(out.Tactics, t) {
			continue
		}
		out.Tactics = append(out.Tactics, t)
		added++
	}
	out.Reasoning = strings.TrimSpace(out.Reasoning + " Enhanced with strategy insights.")
	out.Enhanced = true
	return out
}

// safe rejects enhancement text that would disclose automation or quote a
// different price than the decision.
func (e *Enhancer) safe(text string, d model.NegotiationDecision) bool {
	if e.disclosure.match(text) {
		return false
	}
	for _, v := range ExtractPrices(text) {
		if d.PriceOffer == nil || v != *d.PriceOffer {
			return false
		}
	}
	return true
}

func (e *Enhancer) prompt(d model.NegotiationDecision, turn Turn) string {
	s := turn.State
	var b strings.Builder
	fmt.Fprintf(&b, "You are coaching a buyer haggling over %q listed at %s.\n",
		s.Product.Title, FormatPrice(e.currency, s.Product.ListedPrice))
	fmt.Fprintf(&b, "Buyer target %s, maximum %s, tone %s.\n",
		FormatPrice(e.currency, s.Params.TargetPrice), FormatPrice(e.currency, s.Params.MaxBudget), s.Params.Approach)
	fmt.Fprintf(&b, "Planned move: %s", d.Action)
	if d.PriceOffer != nil {
		fmt.Fprintf(&b, " at %s", FormatPrice(e.currency, *d.PriceOffer))
	}
	fmt.Fprintf(&b, ", tactics %v.\n", d.Tactics)
	if s.SellerMessage != "" {
		fmt.Fprintf(&b, "Seller just said: %q\n", s.SellerMessage)
	}
	b.WriteString("Suggest one short sentence to add to the buyer's reply (no prices), up to two tactic names, ")
	b.WriteString("and a confidence adjustment between -0.2 and 0.2.\n")
	b.WriteString(`Answer with JSON only: {"message_enhancement": "...", "strategy_tips": ["..."], "confidence_adjustment": 0.0}`)
	return b.String()
}

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// NormalizeTactic maps free-form tactic names such as "Value Proposition"
// onto tag form ("value_proposition").
func NormalizeTactic(s string) model.Tactic {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	return model.Tactic(strings.Trim(b.String(), "_"))
}

func hasTactic(ts []model.Tactic, t model.Tactic) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncateText cuts at a word boundary within n runes.
func truncateText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
