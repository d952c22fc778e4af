package view

import (
	"sort"

	"github.com/example/storefront-client/internal/model"
)

// CategoryFacet is one category present in a result set and its count.
type CategoryFacet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceRange is the minimum and maximum price in a result set.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterMetadata summarizes a result set for the filter UI. It is computed
// from whatever slice the caller passes, typically the output of Derive with
// the sort-independent filters applied.
type FilterMetadata struct {
	InStock    int             `json:"in_stock"`
	OutOfStock int             `json:"out_of_stock"`
	Categories []CategoryFacet `json:"categories"`
	PriceRange *PriceRange     `json:"price_range,omitempty"`
}

// Metadata computes filter facets over a product set. Products with an empty
// category contribute to the counts but not to the category facets.
func Metadata(products []model.Product) FilterMetadata {
	meta := FilterMetadata{}
	counts := make(map[string]int)

	for i, p := range products {
		if p.InStock {
			meta.InStock++
		} else {
			meta.OutOfStock++
		}
		if p.Category != "" {
			counts[p.Category]++
		}
		if i == 0 {
			meta.PriceRange = &PriceRange{Min: p.Price, Max: p.Price}
		} else {
			if p.Price < meta.PriceRange.Min {
				meta.PriceRange.Min = p.Price
			}
			if p.Price > meta.PriceRange.Max {
				meta.PriceRange.Max = p.Price
			}
		}
	}

	for name, count := range counts {
		meta.Categories = append(meta.Categories, CategoryFacet{Name: name, Count: count})
	}
	sort.Slice(meta.Categories, func(i, j int) bool {
		return meta.Categories[i].Name < meta.Categories[j].Name
	})

	return meta
}
