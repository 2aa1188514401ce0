package services

import (
	"sort"
	"strings"

	"auction_tracker/config"
	"auction_tracker/models"
)

// Filter keeps candidates inside the price window that mention a brand and a
// model token.
type Filter struct {
	Brands   []string
	Models   []string
	MinPrice float64
	MaxPrice float64 // <= 0 disables the upper bound
}

func NewFilter(cfg config.FilterConfig) *Filter {
	return &Filter{
		Brands:   lowerAll(cfg.Brands),
		Models:   lowerAll(cfg.Models),
		MinPrice: cfg.MinPrice,
		MaxPrice: cfg.MaxPrice,
	}
}

// Apply returns the passing candidates with MatchedModels filled in. Input
// order is preserved.
func (f *Filter) Apply(candidates []models.Listing) []models.Listing {
	var out []models.Listing
	for _, c := range candidates {
		if !f.InPriceRange(c.Price) {
			continue
		}
		matched, ok := f.Match(c.Title + " " + c.Description)
		if !ok {
			continue
		}
		c.MatchedModels = matched
		out = append(out, c)
	}
	return out
}

func (f *Filter) InPriceRange(price float64) bool {
	if price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && price > f.MaxPrice {
		return false
	}
	return true
}

// Match reports which model tokens occur in text, provided at least one brand
// also occurs. Brand-only and model-only text does not match.
func (f *Filter) Match(text string) ([]string, bool) {
	lower := strings.ToLower(text)

	brand := false
	for _, b := range f.Brands {
		if strings.Contains(lower, b) {
			brand = true
			break
		}
	}
	if !brand {
		return nil, false
	}

	var matched []string
	seen := make(map[string]bool)
	for _, m := range f.Models {
		if seen[m] || !strings.Contains(lower, m) {
			continue
		}
		seen[m] = true
		matched = append(matched, m)
	}
	if len(matched) == 0 {
		return nil, false
	}
	sort.Strings(matched)
	return matched, true
}
