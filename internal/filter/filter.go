// Package filter holds the list filtering and pagination rules shared by every
// screen: text search, enum tabs, price brackets, date ranges, stock status
// and page slicing.
package filter

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/groceryadmin/internal/domain"
)

// DefaultLowStockThreshold is used when a screen does not configure one.
const DefaultLowStockThreshold = 10

// Predicate reports whether an item passes a filter.
type Predicate[T any] func(T) bool

// Apply returns the items that pass every predicate, preserving order.
// Nil predicates are ignored.
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matchAll(item, preds) {
			out = append(out, item)
		}
	}
	return out
}

func matchAll[T any](item T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if p != nil && !p(item) {
			return false
		}
	}
	return true
}

// MatchesSearch reports whether term occurs in any of fields, ignoring case.
// An empty or blank term matches everything.
func MatchesSearch(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// MatchesEnum is an exact match where an empty filter means no restriction.
func MatchesEnum[S ~string](filter, value S) bool {
	return filter == "" || filter == value
}

// DateRange bounds an ISO YYYY-MM-DD date. Either end may be empty.
type DateRange struct {
	From string
	To   string
}

func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == ""
}

// Contains compares the date part of value lexicographically against both
// inclusive bounds. Timestamps are cut to their first ten characters.
func (r DateRange) Contains(value string) bool {
	if r.IsZero() {
		return true
	}
	if len(value) > 10 {
		value = value[:10]
	}
	if value == "" {
		return false
	}
	if r.From != "" && value < r.From {
		return false
	}
	if r.To != "" && value > r.To {
		return false
	}
	return true
}

// StockState classifies a stock count. LOW is 0 < stock < threshold.
func StockState(stock, threshold int) domain.StockStatus {
	switch {
	case stock <= 0:
		return domain.StockStatusOut
	case stock < threshold:
		return domain.StockStatusLow
	default:
		return domain.StockStatusIn
	}
}

// MatchesStock applies a stock-status filter; empty means no restriction.
func MatchesStock(filter domain.StockStatus, stock, threshold int) bool {
	if filter == "" {
		return true
	}
	return StockState(stock, threshold) == filter
}

// ProductCriteria is the Inventory screen's filter state.
type ProductCriteria struct {
	Search     string
	Category   string
	PriceRange string
	Stock      domain.StockStatus
	Threshold  int
}

// Products filters products by name/category/description search, category,
// price bracket and stock status.
func Products(items []domain.Product, c ProductCriteria) []domain.Product {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	bracket, hasBracket := PriceRangeByLabel(c.PriceRange)

	return Apply(items,
		func(p domain.Product) bool {
			return MatchesSearch(c.Search, p.Name, p.Category, p.Description)
		},
		func(p domain.Product) bool {
			return MatchesEnum(c.Category, p.Category)
		},
		func(p domain.Product) bool {
			return !hasBracket || bracket.Contains(p.Price)
		},
		func(p domain.Product) bool {
			return MatchesStock(c.Stock, p.Stock, threshold)
		},
	)
}

// CountByStock counts products per stock state, e.g. for the low-stock badge.
func CountByStock(items []domain.Product, threshold int) map[domain.StockStatus]int {
	counts := map[domain.StockStatus]int{
		domain.StockStatusIn:  0,
		domain.StockStatusLow: 0,
		domain.StockStatusOut: 0,
	}
	for _, p := range items {
		counts[StockState(p.Stock, threshold)]++
	}
	return counts
}

// Categories lists the distinct non-empty categories in first-seen order.
func Categories(items []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range items {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// PriceRange is one price bracket. Min is inclusive; Max is exclusive unless
// InclusiveMax is set, and a nil Max is unbounded.
type PriceRange struct {
	Label        string
	Min          decimal.Decimal
	Max          *decimal.Decimal
	InclusiveMax bool
}

func (r PriceRange) Contains(price decimal.Decimal) bool {
	if price.LessThan(r.Min) {
		return false
	}
	if r.Max == nil {
		return true
	}
	if r.InclusiveMax {
		return price.LessThanOrEqual(*r.Max)
	}
	return price.LessThan(*r.Max)
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// PriceRanges are the Inventory brackets in display order.
var PriceRanges = []PriceRange{
	{Label: "Under $5", Min: decimal.Zero, Max: bound(5)},
	{Label: "$5 - $10", Min: decimal.NewFromInt(5), Max: bound(10)},
	{Label: "$10 - $20", Min: decimal.NewFromInt(10), Max: bound(20)},
	{Label: "Over $20", Min: decimal.NewFromInt(20)},
}

// PriceRangeByLabel finds a bracket by its label. Empty or unknown labels
// report false, meaning no price restriction.
func PriceRangeByLabel(label string) (PriceRange, bool) {
	for _, r := range PriceRanges {
		if r.Label == label {
			return r, true
		}
	}
	return PriceRange{}, false
}
