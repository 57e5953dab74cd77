package apiv1

import (
	"time"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/usecase"
)

type Product struct {
	Reference   string `json:"reference,omitempty"`
	Title       string `json:"title"`
	ListedPrice int64  `json:"listed_price"`
	Category    string `json:"category,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Location    string `json:"location,omitempty"`
	Seller      string `json:"seller,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Verified    bool   `json:"verified"`
}

// StartNegotiationRequest accepts either a catalog reference or an inline product.
type StartNegotiationRequest struct {
	UserID      string   `json:"user_id"`
	Reference   string   `json:"reference,omitempty"`
	Product     *Product `json:"product,omitempty"`
	TargetPrice int64    `json:"target_price"`
	MaxBudget   int64    `json:"max_budget"`
	Approach    string   `json:"approach,omitempty"`
	Timeline    string   `json:"timeline,omitempty"`
}

type SellerMessageRequest struct {
	Text string `json:"text"`
}

type Message struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Params struct {
	TargetPrice int64  `json:"target_price"`
	MaxBudget   int64  `json:"max_budget"`
	Approach    string `json:"approach"`
	Timeline    string `json:"timeline,omitempty"`
}

type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	Phase         string    `json:"phase"`
	Outcome       string    `json:"outcome,omitempty"`
	FinalPrice    *int64    `json:"final_price,omitempty"`
	LastOffer     *int64    `json:"last_offer,omitempty"`
	HandoffReason string    `json:"handoff_reason,omitempty"`
	Product       Product   `json:"product"`
	Params        Params    `json:"params"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Turn struct {
	Session  Session                    `json:"session"`
	Reply    string                     `json:"reply"`
	Decision *model.NegotiationDecision `json:"decision,omitempty"`
	Source   string                     `json:"render_source"`
	Handoff  string                     `json:"handoff,omitempty"`
}

type Error struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (r StartNegotiationRequest) toUseCase() usecase.StartRequest {
	req := usecase.StartRequest{
		UserID:    r.UserID,
		Reference: r.Reference,
		Params: model.UserParameters{
			TargetPrice: r.TargetPrice,
			MaxBudget:   r.MaxBudget,
			Approach:    model.Approach(r.Approach),
			Timeline:    r.Timeline,
		},
	}
	if r.Product != nil {
		p := model.Product{
			Reference:   r.Product.Reference,
			Title:       r.Product.Title,
			ListedPrice: r.Product.ListedPrice,
			Category:    r.Product.Category,
			Condition:   r.Product.Condition,
			Location:    r.Product.Location,
			Seller:      r.Product.Seller,
			Platform:    r.Product.Platform,
			Verified:    r.Product.Verified,
		}
		req.Product = &p
	}
	return req
}

func toProduct(p model.Product) Product {
	return Product{
		Reference:   p.Reference,
		Title:       p.Title,
		ListedPrice: p.ListedPrice,
		Category:    p.Category,
		Condition:   p.Condition,
		Location:    p.Location,
		Seller:      p.Seller,
		Platform:    p.Platform,
		Verified:    p.Verified,
	}
}

func toSession(s *model.NegotiationSession) Session {
	msgs := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, Message{Seq: m.Seq, Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	return Session{
		ID:            s.ID,
		UserID:        s.UserID,
		Status:        string(s.Status),
		Phase:         string(s.Phase),
		Outcome:       string(s.Outcome),
		FinalPrice:    s.FinalPrice,
		LastOffer:     s.LastOffer,
		HandoffReason: s.HandoffReason,
		Product:       toProduct(s.Product),
		Params: Params{
			TargetPrice: s.Params.TargetPrice,
			MaxBudget:   s.Params.MaxBudget,
			Approach:    string(s.Params.Approach),
			Timeline:    s.Params.Timeline,
		},
		Messages:  msgs,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toTurn(res *usecase.TurnResult) Turn {
	return Turn{
		Session:  toSession(res.Session),
		Reply:    res.Reply,
		Decision: res.Decision,
		Source:   string(res.Source),
		Handoff:  string(res.Handoff),
	}
}
