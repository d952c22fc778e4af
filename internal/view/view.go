// Package view derives the visible product list from the normalized catalog.
// The pipeline is pure and cheap enough to re-run on every keystroke.
package view

import (
	"sort"
	"strings"

	"github.com/example/storefront-client/internal/model"
)

// SortKey selects the ordering of the derived view.
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
)

// CategoryAll is the sentinel that disables the category filter.
const CategoryAll = "all"

// Query describes one derived view over the catalog.
type Query struct {
	Text     string
	Category string
	Sort     SortKey
}

// Derive applies text filter, then category filter, then sort. The order is
// fixed: facets are computed from the filtered set, so reordering the stages
// would change user-visible facet counts. All sorts are stable; ties keep the
// input order, and SortFeatured is the input order itself.
func Derive(products []model.Product, q Query) []model.Product {
	result := make([]model.Product, 0, len(products))
	text := strings.ToLower(strings.TrimSpace(q.Text))

	for _, p := range products {
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Title), text) &&
			!strings.Contains(strings.ToLower(p.Category), text) {
			continue
		}
		if q.Category != "" && q.Category != CategoryAll && p.Category != q.Category {
			continue
		}
		result = append(result, p)
	}

	switch q.Sort {
	case SortPriceLow:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Price < result[j].Price
		})
	case SortPriceHigh:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Price > result[j].Price
		})
	case SortRating:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Rating > result[j].Rating
		})
	}

	return result
}
