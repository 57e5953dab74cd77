package negotiation

import "negotiation-agent/internal/domain/model"

type HandoffTrigger string

const (
	TriggerHumanRequest   HandoffTrigger = "human_request"
	TriggerComplexTerms   HandoffTrigger = "complex_terms"
	TriggerDeadlock       HandoffTrigger = "deadlock"
	TriggerTechnicalIssue HandoffTrigger = "technical_issue"
)

var handoffMessages = map[HandoffTrigger]string{
	TriggerHumanRequest:   "I understand you'd like to speak directly. Let me connect you with my colleague who can assist you better.",
	TriggerComplexTerms:   "These are important details that need careful consideration. Let me have someone with more expertise help us.",
	TriggerDeadlock:       "Let me bring in a colleague who might have a fresh perspective on this negotiation.",
	TriggerTechnicalIssue: "I want to make sure we address your concerns properly. Let me connect you with someone who can help.",
}

// Message is the buyer-side text sent when the trigger fires.
func (t HandoffTrigger) Message() string {
	if m, ok := handoffMessages[t]; ok {
		return m
	}
	return "Let me connect you with a colleague for better assistance."
}

const (
	deadlockMinMessages = 12
	deadlockWindow      = 6
)

// HandoffDetector decides when a conversation should leave automation.
type HandoffDetector struct {
	human, complex, technical termSet
}

func NewHandoffDetector(lex Lexicon) *HandoffDetector {
	return &HandoffDetector{
		human:     compileTerms(lex.Handoff.HumanRequest),
		complex:   compileTerms(lex.Handoff.ComplexTerms),
		technical: compileTerms(lex.Handoff.TechnicalIssue),
	}
}

// Detect checks the latest seller message. messages must already include it.
// A nil detector never triggers.
// A deadlock is a long conversation whose recent messages all quote one price.
func (d *HandoffDetector) Detect(messages []model.ChatMessage, sellerMessage string) (HandoffTrigger, bool) {
	if d == nil {
		return "", false
	}
	words := tokenize(sellerMessage)
	switch {
	case d.human.matchIn(words):
		return TriggerHumanRequest, true
	case d.complex.matchIn(words):
		return TriggerComplexTerms, true
	case deadlocked(messages):
		return TriggerDeadlock, true
	case d.technical.matchIn(words):
		return TriggerTechnicalIssue, true
	}
	return "", false
}

func deadlocked(messages []model.ChatMessage) bool {
	if len(messages) <= deadlockMinMessages {
		return false
	}
	seen := map[int64]struct{}{}
	for _, m := range messages[len(messages)-deadlockWindow:] {
		for _, v := range ExtractPrices(m.Content) {
			seen[v] = struct{}{}
		}
	}
	return len(seen) == 1
}
