package negotiation

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Lexicon is the keyword table behind every lexical heuristic in the core.
// Terms are matched case-insensitively on whole words; a multi-word term
// matches a contiguous word sequence.
type Lexicon struct {
	Version string `yaml:"version"`

	Closing []string `yaml:"closing"`
	Counter []string `yaml:"counter"`

	Sentiment struct {
		Resistant []string `yaml:"resistant"`
		Agreeable []string `yaml:"agreeable"`
		Open      []string `yaml:"open"`
	} `yaml:"sentiment"`

	// Seller tactic sets must be pairwise disjoint.
	SellerTactics struct {
		Rejection    []string `yaml:"rejection"`
		Acceptance   []string `yaml:"acceptance"`
		CounterOffer []string `yaml:"counter_offer"`
		Ultimatum    []string `yaml:"ultimatum"`
	} `yaml:"seller_tactics"`

	Urgency     []string `yaml:"urgency"`
	Flexibility []string `yaml:"flexibility"`

	Buckets struct {
		Greeting   []string `yaml:"greeting"`
		Price      []string `yaml:"price"`
		Rejection  []string `yaml:"rejection"`
		Acceptance []string `yaml:"acceptance"`
		Logistics  []string `yaml:"logistics"`
		Condition  []string `yaml:"condition"`
	} `yaml:"buckets"`

	Handoff struct {
		HumanRequest   []string `yaml:"human_request"`
		ComplexTerms   []string `yaml:"complex_terms"`
		TechnicalIssue []string `yaml:"technical_issue"`
	} `yaml:"handoff"`

	// Disclosure lists phrases a buyer message must never contain.
	Disclosure []string `yaml:"disclosure"`
}

// DefaultLexicon returns the built-in English table.
func DefaultLexicon() Lexicon {
	var l Lexicon
	l.Version = "en-2"
	l.Closing = []string{"final", "last"}
	l.Counter = []string{"counter"}

	l.Sentiment.Resistant = []string{"no", "can't", "cannot", "impossible", "too low", "minimum", "sorry"}
	l.Sentiment.Agreeable = []string{"okay", "ok", "yes", "agreed", "fine", "deal", "accept"}
	l.Sentiment.Open = []string{"maybe", "consider", "think", "possible", "let me"}

	l.SellerTactics.Rejection = []string{"no", "can't", "cannot", "impossible", "too low", "sorry", "not possible"}
	l.SellerTactics.Acceptance = []string{"okay", "ok", "yes", "agreed", "deal", "accept", "done"}
	l.SellerTactics.CounterOffer = []string{"counter", "what about", "how about", "i can do", "meet in the middle"}
	l.SellerTactics.Ultimatum = []string{"final", "last", "best", "lowest", "take it or leave it"}

	l.Urgency = []string{"final", "last", "deadline", "urgent", "today only"}
	l.Flexibility = []string{"consider", "negotiate", "negotiable", "discuss", "flexible"}

	l.Buckets.Greeting = []string{"hi", "hello", "hey", "available", "still available", "interested"}
	l.Buckets.Price = []string{"price", "cost", "offer", "how much", "rupees", "rs", "budget", "quote"}
	l.Buckets.Rejection = []string{"no", "can't", "cannot", "too low", "not possible", "firm", "fixed", "non negotiable"}
	l.Buckets.Acceptance = []string{"ok", "okay", "deal", "yes", "agreed", "done", "accept"}
	l.Buckets.Logistics = []string{"pickup", "pick up", "delivery", "deliver", "address", "location", "meet", "collect", "shipping", "come"}
	l.Buckets.Condition = []string{"condition", "scratch", "scratches", "working", "damage", "damaged", "battery", "original", "bill", "box"}

	l.Handoff.HumanRequest = []string{"speak to you directly", "call you", "call me", "talk to owner", "real person", "phone number"}
	l.Handoff.ComplexTerms = []string{"warranty", "return policy", "legal", "contract", "documentation"}
	l.Handoff.TechnicalIssue = []string{"not working", "error", "problem with", "technical issue"}

	l.Disclosure = []string{"as an ai", "ai assistant", "language model", "i am a bot", "i'm a bot", "chatbot", "automated", "artificial intelligence"}
	return l
}

// LoadLexicon overlays a YAML file onto the defaults. Sections absent
// from the file keep their built-in terms.
func LoadLexicon(path string) (Lexicon, error) {
	l := DefaultLexicon()
	b, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	if err := yaml.Unmarshal(b, &l); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Lexicon{}, err
	}
	return l, nil
}

func (l Lexicon) Validate() error {
	if strings.TrimSpace(l.Version) == "" {
		return fmt.Errorf("lexicon: version is required")
	}
	sets := map[string][]string{
		"rejection":     l.SellerTactics.Rejection,
		"acceptance":    l.SellerTactics.Acceptance,
		"counter_offer": l.SellerTactics.CounterOffer,
		"ultimatum":     l.SellerTactics.Ultimatum,
	}
	owner := map[string]string{}
	for _, name := range []string{"rejection", "acceptance", "counter_offer", "ultimatum"} {
		for _, term := range sets[name] {
			key := strings.Join(tokenize(term), " ")
			if key == "" {
				continue
			}
			if prev, ok := owner[key]; ok && prev != name {
				return fmt.Errorf("lexicon: term %q is in both %s and %s", term, prev, name)
			}
			owner[key] = name
		}
	}
	return nil
}

// termSet is a compiled list of terms.
type termSet [][]string

func compileTerms(terms []string) termSet {
	out := make(termSet, 0, len(terms))
	for _, t := range terms {
		if toks := tokenize(t); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

// matchIn reports whether any term occurs in the tokenized text.
func (s termSet) matchIn(words []string) bool {
	for _, term := range s {
		if containsSeq(words, term) {
			return true
		}
	}
	return false
}

func (s termSet) match(text string) bool { return s.matchIn(tokenize(text)) }

func containsSeq(words, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(words) {
		return false
	}
	for i := 0; i+len(seq) <= len(words); i++ {
		ok := true
		for j := range seq {
			if words[i+j] != seq[j] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// tokenize lower-cases text and splits it into words. Apostrophes stay
// inside words so "can't" is one token.
func tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "'"); f != "" {
			out = append(out, f)
		}
	}
	return out
}
