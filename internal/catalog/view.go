package catalog

import (
	"sort"
	"strings"
)

// SortOrder controls the price ordering of a derived view.
type SortOrder string

const (
	SortNone      SortOrder = "none"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// AllCategories disables the category filter.
const AllCategories = "All"

// ParseSort accepts the canonical names plus the storefront's "low"/"high" shorthands.
// Anything else yields SortNone.
func ParseSort(value string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "price_asc", "low", "asc":
		return SortPriceAsc
	case "price_desc", "high", "desc":
		return SortPriceDesc
	default:
		return SortNone
	}
}

// View is a filter/search/sort selection applied to a product list.
type View struct {
	Category string
	Search   string
	Sort     SortOrder
}

// Apply returns a new slice; the input is never reordered. Category matches exactly
// ignoring case, search is a case-insensitive substring of the name, and sorting is
// stable so equal prices keep their received order.
func (v View) Apply(products []Product) []Product {
	category := strings.TrimSpace(v.Category)
	if strings.EqualFold(category, AllCategories) {
		category = ""
	}
	search := strings.ToLower(strings.TrimSpace(v.Search))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}

	switch v.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	}
	return out
}

// Categories lists distinct categories in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := []string{}
	for _, p := range products {
		key := strings.ToLower(strings.TrimSpace(p.Category))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
