package catalog

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/negotiation"
)

var _ adapter.ProductCatalog = (*Catalog)(nil)

const (
	minURLPrice     = 1000
	maxURLPrice     = 10_000_000
	defaultPrice    = 50000
	fallbackTitle   = "Product from Marketplace"
	defaultLocation = "India"
)

// keyword -> typical asking price when the listing carries no price.
var priceHints = []struct {
	keywords []string
	price    int64
}{
	{[]string{"laptop", "macbook", "thinkpad", "computer"}, 35000},
	{[]string{"phone", "mobile", "iphone", "smartphone", "galaxy"}, 15000},
	{[]string{"car", "sedan", "suv", "hatchback"}, 300000},
	{[]string{"bike", "motorcycle", "scooter"}, 80000},
	{[]string{"sofa", "furniture", "table", "chair", "bed"}, 25000},
	{[]string{"tv", "television"}, 20000},
}

var (
	digitsRe = regexp.MustCompile(`\d+`)
	wordRe   = regexp.MustCompile(`[A-Za-z0-9]+`)
	idLikeRe = regexp.MustCompile(`^((iid|id|item|ad)\d*|\d{5,})$`)
)

// Catalog resolves product references. Registered products are returned as
// verified; anything else is estimated from the reference itself.
type Catalog struct {
	products map[string]model.Product
	table    negotiation.CategoryTable
	log      *zerolog.Logger
}

func New(products []model.Product, table negotiation.CategoryTable, logger *zerolog.Logger) (*Catalog, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	c := &Catalog{products: make(map[string]model.Product, len(products)), table: table, log: logger}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog product %q: %w", p.Reference, err)
		}
		key := normalizeRef(p.Reference)
		if _, dup := c.products[key]; dup {
			return nil, fmt.Errorf("catalog product %q: %w", p.Reference, domain.ErrAlreadyExists)
		}
		if p.Category == "" {
			p.Category = table.Categorize(p.Title)
		}
		p.Verified = true
		c.products[key] = p
	}
	return c, nil
}

func (c *Catalog) Resolve(ctx context.Context, reference string) (model.Product, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return model.Product{}, &model.ValidationError{Field: "reference", Reason: "is required"}
	}
	if p, ok := c.products[normalizeRef(reference)]; ok {
		return p, nil
	}
	p := c.estimate(reference)
	c.log.Info().
		Str("reference", reference).
		Str("title", p.Title).
		Int64("listed_price", p.ListedPrice).
		Str("platform", p.Platform).
		Msg("catalog: estimated product")
	return p, nil
}

func (c *Catalog) estimate(reference string) model.Product {
	u, err := url.Parse(reference)
	isURL := err == nil && u.Host != ""

	title := reference
	platform := "Marketplace"
	if isURL {
		title = titleFromPath(u.Path)
		platform = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	price := int64(0)
	if isURL {
		price = priceFromDigits(u.Path + " " + u.RawQuery)
	}
	if price == 0 {
		price = priceFromKeywords(strings.ToLower(reference))
	}
	return model.Product{
		Reference:   reference,
		Title:       title,
		ListedPrice: price,
		Category:    c.table.Categorize(title),
		Condition:   "Used",
		Location:    defaultLocation,
		Seller:      "Seller on " + platform,
		Platform:    platform,
		Verified:    false,
	}
}

// titleFromPath takes the last descriptive path segment.
func titleFromPath(path string) string {
	parts := strings.Split(path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		words := wordRe.FindAllString(parts[i], -1)
		var kept []string
		for _, w := range words {
			if !idLikeRe.MatchString(strings.ToLower(w)) {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 || len(strings.Join(kept, "")) < 3 {
			continue
		}
		return cases.Title(language.English).String(strings.ToLower(strings.Join(kept, " ")))
	}
	return fallbackTitle
}

// priceFromDigits picks the first number in the plausible listing range.
func priceFromDigits(s string) int64 {
	for _, d := range digitsRe.FindAllString(s, -1) {
		v, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			continue
		}
		if v >= minURLPrice && v <= maxURLPrice {
			return v
		}
	}
	return 0
}

func priceFromKeywords(s string) int64 {
	words := wordRe.FindAllString(s, -1)
	for _, h := range priceHints {
		for _, k := range h.keywords {
			for _, w := range words {
				if w == k {
					return h.price
				}
			}
		}
	}
	return defaultPrice
}

func normalizeRef(ref string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(ref)), "/")
}
