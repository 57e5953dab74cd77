package model

import (
	"strings"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionHandoff   SessionStatus = "handoff"
)

// Terminal reports whether no further messages are accepted.
func (s SessionStatus) Terminal() bool { return s != SessionActive }

type Outcome string

const (
	OutcomeNone               Outcome = ""
	OutcomeSuccess            Outcome = "success"
	OutcomeFailedPrice        Outcome = "failed_price"
	OutcomeSellerUnresponsive Outcome = "seller_unresponsive"
	OutcomeUserCancelled      Outcome = "user_cancelled"
	OutcomeHumanHandoff       Outcome = "human_handoff"
)

type Approach string

const (
	ApproachAssertive   Approach = "assertive"
	ApproachDiplomatic  Approach = "diplomatic"
	ApproachConsiderate Approach = "considerate"
)

// ParseApproach accepts any casing; empty input maps to diplomatic.
func ParseApproach(s string) (Approach, error) {
	switch a := Approach(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return ApproachDiplomatic, nil
	case ApproachAssertive, ApproachDiplomatic, ApproachConsiderate:
		return a, nil
	default:
		return "", &ValidationError{Field: "approach", Reason: "must be assertive, diplomatic or considerate"}
	}
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleSystem Role = "system"
)

// ChatMessage is immutable once appended to a session.
type ChatMessage struct {
	SessionID string
	Seq       int
	Role      Role
	Content   string
	Timestamp time.Time
}

// UserParameters are the buyer's constraints for one negotiation.
type UserParameters struct {
	TargetPrice int64
	MaxBudget   int64
	Approach    Approach
	Timeline    string
}

func (p UserParameters) Validate() error {
	switch {
	case p.TargetPrice <= 0:
		return &ValidationError{Field: "target_price", Reason: "must be positive"}
	case p.MaxBudget <= 0:
		return &ValidationError{Field: "max_budget", Reason: "must be positive"}
	case p.TargetPrice > p.MaxBudget:
		return &ValidationError{Field: "target_price", Reason: "must not exceed max_budget"}
	}
	if _, err := ParseApproach(string(p.Approach)); err != nil {
		return err
	}
	return nil
}

// Clamp forces v into [TargetPrice, MaxBudget].
func (p UserParameters) Clamp(v int64) int64 {
	if v < p.TargetPrice {
		return p.TargetPrice
	}
	if v > p.MaxBudget {
		return p.MaxBudget
	}
	return v
}

// NegotiationSession is the aggregate root for one buyer/seller conversation.
type NegotiationSession struct {
	ID            string
	UserID        string
	Product       Product
	Params        UserParameters
	Messages      []ChatMessage
	Status        SessionStatus
	Phase         Phase
	Outcome       Outcome
	FinalPrice    *int64
	LastOffer     *int64
	LastAction    ActionType
	HandoffReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewNegotiationSession(id, userID string, product Product, params UserParameters) (*NegotiationSession, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if params.Approach == "" {
		params.Approach = ApproachDiplomatic
	}
	now := time.Now()
	return &NegotiationSession{
		ID:        id,
		UserID:    userID,
		Product:   product,
		Params:    params,
		Messages:  make([]ChatMessage, 0, 8),
		Status:    SessionActive,
		Phase:     PhaseOpening,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddMessage appends to the conversation; messages are never reordered or removed.
func (s *NegotiationSession) AddMessage(role Role, content string) ChatMessage {
	m := ChatMessage{
		SessionID: s.ID,
		Seq:       len(s.Messages) + 1,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = m.Timestamp
	return m
}

// SellerMessageCount counts seller turns received so far.
func (s *NegotiationSession) SellerMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleSeller {
			n++
		}
	}
	return n
}

// ApplyDecision records the buyer's latest move.
func (s *NegotiationSession) ApplyDecision(d NegotiationDecision) {
	if d.Phase != "" && d.Phase.Rank() >= s.Phase.Rank() {
		s.Phase = d.Phase
	}
	s.LastAction = d.Action
	if d.PriceOffer != nil {
		v := *d.PriceOffer
		s.LastOffer = &v
	}
	s.UpdatedAt = time.Now()
}

func (s *NegotiationSession) Complete(outcome Outcome, finalPrice *int64) {
	s.Status = SessionCompleted
	s.Outcome = outcome
	if finalPrice != nil {
		v := *finalPrice
		s.FinalPrice = &v
	}
	s.UpdatedAt = time.Now()
}

func (s *NegotiationSession) Cancel() {
	s.Status = SessionCancelled
	s.Outcome = OutcomeUserCancelled
	s.UpdatedAt = time.Now()
}

func (s *NegotiationSession) Handoff(reason string) {
	s.Status = SessionHandoff
	s.Outcome = OutcomeHumanHandoff
	s.HandoffReason = reason
	s.UpdatedAt = time.Now()
}
