package negotiation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var priceRe = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr|\$)?\s?(\d[\d,]*(?:\.\d+)?)(\s?(?:k\b|lakhs?\b|lacs?\b|/-|rupees\b|rs\b))?`)

// ExtractPrices returns currency amounts mentioned in text, in order.
// Bare numbers count only from four digits up and never when they look
// like a model year or a phone number.
func ExtractPrices(text string) []int64 {
	var out []int64
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		prefix, digits, suffix := m[1], m[2], strings.ToLower(strings.TrimSpace(m[3]))
		hasComma := strings.Contains(digits, ",")
		f, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
		if err != nil {
			continue
		}
		switch {
		case suffix == "k":
			f *= 1000
		case strings.HasPrefix(suffix, "lakh"), strings.HasPrefix(suffix, "lac"):
			f *= 100000
		}
		v := int64(math.Round(f))
		if prefix == "" && suffix == "" {
			if v < 1000 || len(digits) > 9 {
				continue
			}
			if !hasComma && v >= 1980 && v <= 2099 {
				continue
			}
		}
		if v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// LastPrice returns the final amount mentioned in text.
func LastPrice(text string) (int64, bool) {
	ps := ExtractPrices(text)
	if len(ps) == 0 {
		return 0, false
	}
	return ps[len(ps)-1], true
}

var pricePrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatPrice renders an amount with Indian digit grouping, e.g.
// "₹49,500" or "₹1,25,000".
func FormatPrice(symbol string, v int64) string {
	return symbol + pricePrinter.Sprintf("%d", v)
}
