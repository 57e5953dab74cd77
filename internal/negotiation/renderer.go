package negotiation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
)

type RenderSource string

const (
	RenderLLM      RenderSource = "llm"
	RenderDraft    RenderSource = "draft"
	RenderTemplate RenderSource = "template"
)

type RenderInput struct {
	Decision      model.NegotiationDecision
	Product       model.Product
	Params        model.UserParameters
	SellerMessage string
	Round         int
}

type Rendered struct {
	Text   string
	Source RenderSource
}

var personas = map[model.Approach]string{
	model.ApproachAssertive:   "direct and confident",
	model.ApproachDiplomatic:  "balanced and respectful",
	model.ApproachConsiderate: "empathetic and budget-conscious",
}

var tacticHints = map[model.Tactic]string{
	model.TacticAnchoring:             "anchor firmly on your number",
	model.TacticAlternativeOptions:    "mention you are looking at other listings",
	model.TacticMarketComparison:      "refer to what similar items sell for",
	model.TacticReciprocalConcessions: "show you are meeting them partway",
	model.TacticValueProposition:      "point out a quick, hassle-free sale",
	model.TacticRapportBuilding:       "be warm and personable",
	model.TacticFinalOffer:            "signal this is close to your limit",
	model.TacticCommitmentSeeking:     "ask them to confirm the deal",
	model.TacticMinorConcessions:      "offer a small courtesy such as flexible pickup",
	model.TacticDeadlineLeverage:      "acknowledge their timing and offer to act fast",
	model.TacticCreativeSolutions:     "propose a flexible arrangement",
}

// ResponseRenderer turns a decision into buyer-voice text. Generated text is
// used only when it passes the guard; otherwise the decision's draft or a
// deterministic template is used.
type ResponseRenderer struct {
	completer  adapter.TextCompleter
	templates  *TemplateSet
	buckets    *BucketDetector
	disclosure termSet
	currency   string
	timeout    time.Duration
	log        *zerolog.Logger
}

func NewResponseRenderer(completer adapter.TextCompleter, lex Lexicon, templates *TemplateSet, currency string, timeout time.Duration, logger *zerolog.Logger) *ResponseRenderer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if currency == "" {
		currency = "₹"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &ResponseRenderer{
		completer:  completer,
		templates:  templates,
		buckets:    NewBucketDetector(lex),
		disclosure: compileTerms(lex.Disclosure),
		currency:   currency,
		timeout:    timeout,
		log:        logger,
	}
}

func (r *ResponseRenderer) Render(ctx context.Context, in RenderInput) Rendered {
	d := boundDecision(in.Decision, in.Params)

	if r.completer != nil {
		text, err := callWithTimeout(ctx, r.timeout, func(ctx context.Context) (string, error) {
			return r.completer.Complete(ctx, r.prompt(d, in))
		})
		if err == nil {
			text = cleanGenerated(text)
			if r.acceptable(text, d, in) {
				return Rendered{Text: text, Source: RenderLLM}
			}
			r.log.Debug().Str("action", string(d.Action)).Msg("generated reply rejected by guard")
		} else {
			r.log.Debug().Err(err).Msg("reply generation unavailable")
		}
	}

	if msg := strings.TrimSpace(d.Message); msg != "" && r.acceptable(msg, d, in) {
		return Rendered{Text: msg, Source: RenderDraft}
	}

	bucket := r.buckets.Detect(in.SellerMessage)
	return Rendered{
		Text:   renderTemplate(r.templates, r.currency, d, in.Params.Approach, bucket, in.Round, in.Product.Title),
		Source: RenderTemplate,
	}
}

// acceptable is the guard applied to any free text before it is sent.
// Numbers inside the product title are not treated as prices.
func (r *ResponseRenderer) acceptable(text string, d model.NegotiationDecision, in RenderInput) bool {
	if strings.TrimSpace(text) == "" || r.disclosure.match(text) {
		return false
	}
	p := in.Params
	scan := text
	if t := strings.TrimSpace(in.Product.Title); t != "" {
		scan = strings.ReplaceAll(scan, t, "")
	}
	quotesOffer := false
	for _, v := range ExtractPrices(scan) {
		if v < p.TargetPrice || v > p.MaxBudget {
			return false
		}
		if d.PriceOffer != nil && v == *d.PriceOffer {
			quotesOffer = true
		}
	}
	if d.PriceOffer != nil && !quotesOffer {
		return false
	}
	return true
}

func (r *ResponseRenderer) prompt(d model.NegotiationDecision, in RenderInput) string {
	persona := personas[in.Params.Approach]
	if persona == "" {
		persona = personas[model.ApproachDiplomatic]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a buyer chatting with a seller on a marketplace about %q. Your tone is %s.\n", in.Product.Title, persona)
	if in.SellerMessage != "" {
		fmt.Fprintf(&b, "The seller just wrote: %q\n", in.SellerMessage)
	} else {
		b.WriteString("This is your first message to the seller.\n")
	}
	switch d.Action {
	case model.ActionAccept:
		b.WriteString("Accept the deal")
		if d.PriceOffer != nil {
			fmt.Fprintf(&b, " at exactly %s", FormatPrice(r.currency, *d.PriceOffer))
		}
		b.WriteString(" and ask about pickup.\n")
	case model.ActionReject:
		b.WriteString("Politely decline; the price is beyond your budget. Do not name any price.\n")
	case model.ActionQuestion:
		b.WriteString("Ask a short question about the item or the seller's best price. Do not name any price.\n")
	default:
		fmt.Fprintf(&b, "Make a %s of exactly %s. Write the amount exactly like that.\n",
			strings.ReplaceAll(string(d.Action), "_", " "), FormatPrice(r.currency, d.Price()))
	}
	var hints []string
	for _, t := range d.Tactics {
		if h := tacticHints[t]; h != "" {
			hints = append(hints, h)
		}
	}
	if len(hints) > 0 {
		fmt.Fprintf(&b, "Where natural: %s.\n", strings.Join(hints, "; "))
	}
	b.WriteString("Write one to three short sentences as yourself. Never say you are an AI, a bot or automated. Output only the message.")
	return b.String()
}

// boundDecision re-applies the price invariant before anything is rendered.
func boundDecision(d model.NegotiationDecision, p model.UserParameters) model.NegotiationDecision {
	if d.PriceOffer == nil {
		return d
	}
	v := *d.PriceOffer
	if d.Action == model.ActionAccept && (v < p.TargetPrice || v > p.MaxBudget) {
		d.PriceOffer = nil
		return d
	}
	d.PriceOffer = model.Price(p.Clamp(v))
	return d
}

func renderTemplate(ts *TemplateSet, currency string, d model.NegotiationDecision, approach model.Approach, bucket Bucket, round int, title string) string {
	if d.Action == model.ActionAccept && d.PriceOffer == nil {
		bucket = bucketUnpriced
	}
	data := TemplateData{Title: title}
	if d.PriceOffer != nil {
		data.Offer = FormatPrice(currency, *d.PriceOffer)
	}
	return ts.Render(d.Action, approach, bucket, round-1, data)
}

func cleanGenerated(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}
