// Package ranking holds the ordered output of the ranking engine.
package ranking

import (
	"github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// Factor is one taxonomy value's contribution to a composite score.
type Factor struct {
	Attribute    taxonomy.Name
	Value        string
	Score        float64
	Strength     float64
	Contribution float64
}

// Item is one ranked product.
type Item struct {
	UID            string
	Category       string
	Composite      float64
	AttributeSum   float64
	CategoryWeight float64
	Factors        []Factor
	Product        catalog.Product
}

// Result is a totally ordered list of ranked products.
type Result struct {
	Items []Item
}

// Len returns the number of ranked products.
func (r Result) Len() int { return len(r.Items) }

// UIDs returns product ids in rank order.
func (r Result) UIDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.UID
	}
	return ids
}

// ByCategory groups items by category, keeping rank order inside each group.
func (r Result) ByCategory() map[string][]Item {
	out := make(map[string][]Item)
	for _, it := range r.Items {
		out[it.Category] = append(out[it.Category], it)
	}
	return out
}
