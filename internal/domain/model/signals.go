package model

type Phase string

const (
	PhaseOpening     Phase = "opening"
	PhaseBargaining  Phase = "bargaining"
	PhaseNegotiation Phase = "negotiation"
	PhaseClosing     Phase = "closing"
)

// Rank orders phases; bargaining and negotiation share the middle rank.
func (p Phase) Rank() int {
	switch p {
	case PhaseBargaining, PhaseNegotiation:
		return 1
	case PhaseClosing:
		return 2
	default:
		return 0
	}
}

type Sentiment string

const (
	SentimentResistant Sentiment = "resistant"
	SentimentAgreeable Sentiment = "agreeable"
	SentimentOpen      Sentiment = "open"
	SentimentNeutral   Sentiment = "neutral"
)

type SellerTactic string

const (
	SellerRejection    SellerTactic = "rejection"
	SellerAcceptance   SellerTactic = "acceptance"
	SellerCounterOffer SellerTactic = "counter_offer"
	SellerUltimatum    SellerTactic = "ultimatum"
)

// SellerSignals are extracted from the latest seller message.
type SellerSignals struct {
	Sentiment Sentiment      `json:"sentiment"`
	Tactics   []SellerTactic `json:"tactics,omitempty"`
	Urgency   bool           `json:"urgency,omitempty"`
	Flexible  bool           `json:"flexible,omitempty"`
}

func (s SellerSignals) Has(t SellerTactic) bool {
	for _, x := range s.Tactics {
		if x == t {
			return true
		}
	}
	return false
}
