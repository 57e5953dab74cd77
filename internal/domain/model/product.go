package model

import "strings"

// Product is resolved once per negotiation and read-only afterwards.
type Product struct {
	Reference   string `json:"reference"`
	Title       string `json:"title"`
	ListedPrice int64  `json:"listed_price"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Location    string `json:"location"`
	Seller      string `json:"seller"`
	Platform    string `json:"platform"`
	// Verified is false when the catalog fell back to an estimate.
	Verified bool `json:"verified"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "product.title", Reason: "is required"}
	}
	if p.ListedPrice <= 0 {
		return &ValidationError{Field: "product.listed_price", Reason: "must be positive"}
	}
	return nil
}

// ID is the stable identity used in decision logs.
func (p Product) ID() string {
	if p.Reference != "" {
		return p.Reference
	}
	return p.Title
}
