package negotiation

import "negotiation-agent/internal/domain/model"

const defaultPhaseWindow = 6

// Classification is the classifier's verdict for one seller turn.
type Classification struct {
	Phase   model.Phase
	Signals model.SellerSignals
}

// PhaseClassifier detects the conversation phase and seller signals from
// lexicon matches. It is deterministic for a fixed lexicon.
type PhaseClassifier struct {
	window int

	closing, counter           termSet
	resistant, agreeable, open termSet
	rejection, acceptance      termSet
	counterOffer, ultimatum    termSet
	urgency, flexibility       termSet
}

func NewPhaseClassifier(lex Lexicon, window int) *PhaseClassifier {
	if window <= 0 {
		window = defaultPhaseWindow
	}
	return &PhaseClassifier{
		window:       window,
		closing:      compileTerms(lex.Closing),
		counter:      compileTerms(lex.Counter),
		resistant:    compileTerms(lex.Sentiment.Resistant),
		agreeable:    compileTerms(lex.Sentiment.Agreeable),
		open:         compileTerms(lex.Sentiment.Open),
		rejection:    compileTerms(lex.SellerTactics.Rejection),
		acceptance:   compileTerms(lex.SellerTactics.Acceptance),
		counterOffer: compileTerms(lex.SellerTactics.CounterOffer),
		ultimatum:    compileTerms(lex.SellerTactics.Ultimatum),
		urgency:      compileTerms(lex.Urgency),
		flexibility:  compileTerms(lex.Flexibility),
	}
}

// Classify inspects the recent messages of either side plus the current one.
// history excludes current; its length is the message count used by the
// round rules. The result never ranks below previous.
func (c *PhaseClassifier) Classify(history []model.ChatMessage, current string, previous model.Phase) Classification {
	recent := c.recentWords(history)
	cur := tokenize(current)
	if len(cur) > 0 {
		recent = append(recent, cur)
	}

	phase := c.detectPhase(recent, len(history))
	if previous.Rank() > phase.Rank() {
		phase = previous
	}
	return Classification{Phase: phase, Signals: c.signals(cur)}
}

func (c *PhaseClassifier) detectPhase(recent [][]string, count int) model.Phase {
	if len(recent) == 0 && count == 0 {
		return model.PhaseOpening
	}
	if anyMatch(c.closing, recent) {
		return model.PhaseClosing
	}
	if anyMatch(c.counter, recent) || count > 3 {
		return model.PhaseBargaining
	}
	if count <= 2 {
		return model.PhaseOpening
	}
	return model.PhaseNegotiation
}

// Signals classifies a single seller message.
func (c *PhaseClassifier) Signals(text string) model.SellerSignals {
	return c.signals(tokenize(text))
}

func (c *PhaseClassifier) signals(words []string) model.SellerSignals {
	s := model.SellerSignals{Sentiment: model.SentimentNeutral}
	switch {
	case c.resistant.matchIn(words):
		s.Sentiment = model.SentimentResistant
	case c.agreeable.matchIn(words):
		s.Sentiment = model.SentimentAgreeable
	case c.open.matchIn(words):
		s.Sentiment = model.SentimentOpen
	}
	if c.rejection.matchIn(words) {
		s.Tactics = append(s.Tactics, model.SellerRejection)
	}
	if c.acceptance.matchIn(words) {
		s.Tactics = append(s.Tactics, model.SellerAcceptance)
	}
	if c.counterOffer.matchIn(words) {
		s.Tactics = append(s.Tactics, model.SellerCounterOffer)
	}
	if c.ultimatum.matchIn(words) {
		s.Tactics = append(s.Tactics, model.SellerUltimatum)
	}
	s.Urgency = c.urgency.matchIn(words)
	s.Flexible = c.flexibility.matchIn(words)
	return s
}

// recentWords tokenizes the last window messages of either side.
func (c *PhaseClassifier) recentWords(history []model.ChatMessage) [][]string {
	start := len(history) - c.window
	if start < 0 {
		start = 0
	}
	var out [][]string
	for _, m := range history[start:] {
		out = append(out, tokenize(m.Content))
	}
	return out
}

func anyMatch(s termSet, texts [][]string) bool {
	for _, words := range texts {
		if s.matchIn(words) {
			return true
		}
	}
	return false
}
