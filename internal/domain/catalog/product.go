// Package catalog models the read-only product catalog consumed by ranking.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// Assignment tags a product with one taxonomy value. Strength weights the
// value's score in the product's attribute sum.
type Assignment struct {
	Attribute taxonomy.Name
	Value     string
	Strength  float64
}

// Product is owned by the external catalog and keyed by UID.
type Product struct {
	UID         string
	Category    string
	Assignments []Assignment
	Name        string
	Description string
	PriceCents  int64
	ImageURL    string
}

// FormattedPrice renders PriceCents in Brazilian real notation, e.g. "R$ 1.234,56".
func (p Product) FormattedPrice() string {
	return FormatPrice(p.PriceCents)
}

// Filter narrows a catalog lookup. Empty Categories means every category.
type Filter struct {
	Categories []string
}

// Matches reports whether p passes the filter.
func (f Filter) Matches(p Product) bool {
	return len(f.Categories) == 0 || slices.Contains(f.Categories, p.Category)
}

// FormatPrice renders cents as "R$ 1.234,56".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	reais := cents / 100
	rest := cents % 100

	digits := fmt.Sprintf("%d", reais)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), rest)
}
