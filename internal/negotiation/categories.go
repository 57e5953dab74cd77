package negotiation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryBand holds the price statistics for one product category.
type CategoryBand struct {
	Name         string   `yaml:"name"`
	Min          int64    `yaml:"min"`
	Max          int64    `yaml:"max"`
	Depreciation float64  `yaml:"depreciation"` // fraction lost per year of age
	Keywords     []string `yaml:"keywords"`
}

func (b CategoryBand) Median() float64 { return float64(b.Min+b.Max) / 2 }

// CategoryTable drives the market estimator. Adding a category is a data change.
type CategoryTable struct {
	Version            string             `yaml:"version"`
	Categories         []CategoryBand     `yaml:"categories"`
	Generic            CategoryBand       `yaml:"generic"`
	BrandMultipliers   map[string]float64 `yaml:"brand_multipliers"`
	MaxBrandMultiplier float64            `yaml:"max_brand_multiplier"`
	DefaultAgeYears    int                `yaml:"default_age_years"`
	MaxDepreciation    float64            `yaml:"max_depreciation"`
	// OutlierMultiple bounds how far above the band a listed price may sit
	// and still be blended into the estimate.
	OutlierMultiple float64  `yaml:"outlier_multiple"`
	NewKeywords     []string `yaml:"new_keywords"`
}

func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		Version: "in-1",
		Categories: []CategoryBand{
			{Name: "Mobile Phones", Min: 5000, Max: 150000, Depreciation: 0.2,
				Keywords: []string{"phone", "mobile", "smartphone", "iphone", "galaxy", "pixel", "oneplus", "redmi"}},
			{Name: "Laptops & Computers", Min: 15000, Max: 300000, Depreciation: 0.25,
				Keywords: []string{"laptop", "macbook", "notebook", "computer", "desktop", "pc", "thinkpad"}},
			{Name: "Gaming", Min: 5000, Max: 80000, Depreciation: 0.2,
				Keywords: []string{"playstation", "ps4", "ps5", "xbox", "nintendo", "console", "gaming"}},
			{Name: "Cars", Min: 100000, Max: 5000000, Depreciation: 0.15,
				Keywords: []string{"car", "sedan", "suv", "hatchback"}},
			{Name: "Vehicles", Min: 20000, Max: 200000, Depreciation: 0.18,
				Keywords: []string{"bike", "motorcycle", "scooter", "scooty", "bicycle"}},
			{Name: "Electronics", Min: 2000, Max: 100000, Depreciation: 0.3,
				Keywords: []string{"tv", "television", "camera", "speaker", "headphones", "monitor", "tablet", "ipad"}},
			{Name: "Home & Garden", Min: 1000, Max: 150000, Depreciation: 0.1,
				Keywords: []string{"sofa", "table", "chair", "bed", "furniture", "wardrobe", "fridge", "refrigerator"}},
		},
		Generic: CategoryBand{Name: "General", Min: 1000, Max: 100000, Depreciation: 0.2},
		BrandMultipliers: map[string]float64{
			"apple": 1.3, "iphone": 1.3, "macbook": 1.4,
			"samsung": 1.2, "sony": 1.2, "lg": 1.1,
			"mercedes": 1.5, "bmw": 1.4, "audi": 1.4,
			"premium": 1.2, "pro": 1.15, "plus": 1.1,
		},
		MaxBrandMultiplier: 1.5,
		DefaultAgeYears:    2,
		MaxDepreciation:    0.8,
		OutlierMultiple:    1.5,
		NewKeywords:        []string{"new", "brand new", "sealed", "unused"},
	}
}

// LoadCategoryTable overlays a YAML file onto the defaults.
func LoadCategoryTable(path string) (CategoryTable, error) {
	t := DefaultCategoryTable()
	b, err := os.ReadFile(path)
	if err != nil {
		return CategoryTable{}, fmt.Errorf("read categories: %w", err)
	}
	if err := yaml.Unmarshal(b, &t); err != nil {
		return CategoryTable{}, fmt.Errorf("parse categories: %w", err)
	}
	if err := t.Validate(); err != nil {
		return CategoryTable{}, err
	}
	return t, nil
}

func (t CategoryTable) Validate() error {
	check := func(b CategoryBand) error {
		if b.Min <= 0 || b.Max < b.Min {
			return fmt.Errorf("categories: band %q has invalid range [%d, %d]", b.Name, b.Min, b.Max)
		}
		if b.Depreciation < 0 || b.Depreciation >= 1 {
			return fmt.Errorf("categories: band %q has invalid depreciation %.2f", b.Name, b.Depreciation)
		}
		return nil
	}
	for _, b := range t.Categories {
		if err := check(b); err != nil {
			return err
		}
	}
	if err := check(t.Generic); err != nil {
		return err
	}
	if t.MaxBrandMultiplier < 1 {
		return fmt.Errorf("categories: max_brand_multiplier must be >= 1")
	}
	return nil
}

// Band returns the named category or the generic band.
func (t CategoryTable) Band(name string) (CategoryBand, bool) {
	name = strings.TrimSpace(name)
	for _, b := range t.Categories {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return t.Generic, false
}

// Categorize guesses a category from a title; empty when nothing matches.
func (t CategoryTable) Categorize(title string) string {
	words := tokenize(title)
	for _, b := range t.Categories {
		if compileTerms(b.Keywords).matchIn(words) {
			return b.Name
		}
	}
	return ""
}
