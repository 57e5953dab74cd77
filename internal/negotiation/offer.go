package negotiation

import "negotiation-agent/internal/domain/model"

// OfferStage is the step of the concession schedule a round falls into.
type OfferStage int

const (
	StageOpening OfferStage = iota + 1 // rounds 1-2
	StageMiddle                        // rounds 3-4
	StageClosing                       // rounds 5+
)

func StageForRound(round int) OfferStage {
	switch {
	case round <= 2:
		return StageOpening
	case round <= 4:
		return StageMiddle
	default:
		return StageClosing
	}
}

type OfferInput struct {
	Params    model.UserParameters
	Listed    int64
	FairValue int64
	Round     int
	// Floor is the buyer's previous offer; the next one never goes below it.
	Floor int64
}

// OfferStrategy computes the buyer's next price. Every result lies in
// [TargetPrice, MaxBudget].
type OfferStrategy struct{}

// Next returns the offer for the given round. Each stage is floored by the
// stages before it, so offers never decrease as rounds advance.
func (OfferStrategy) Next(in OfferInput) int64 {
	p := in.Params
	if p.TargetPrice >= p.MaxBudget {
		return p.MaxBudget
	}
	reference := in.Listed
	if reference <= 0 {
		reference = in.FairValue
	}
	if reference <= 0 {
		reference = p.MaxBudget
	}

	offer := p.TargetPrice
	for s := StageOpening; s <= StageForRound(in.Round); s++ {
		if v := p.Clamp(rawOffer(s, p, reference)); v > offer {
			offer = v
		}
	}
	if in.Floor > offer {
		offer = in.Floor
	}
	return p.Clamp(offer)
}

func rawOffer(s OfferStage, p model.UserParameters, listed int64) int64 {
	t, m := p.TargetPrice, p.MaxBudget
	switch s {
	case StageOpening:
		return t * 11 / 10
	case StageMiddle:
		return (t + listed) * 6 / 10
	default:
		return minInt(m*95/100, (t+listed)*7/10)
	}
}

// Bump raises an offer by ten percent after a firm rejection.
func (OfferStrategy) Bump(offer int64, p model.UserParameters) int64 {
	if offer <= 0 {
		return p.Clamp(p.TargetPrice)
	}
	return p.Clamp(offer + maxInt(offer/10, 1))
}
