// Package exclusion derives the taxonomy values and categories disqualified by
// a query context. Evaluation is a pure function of occasion.Context.
package exclusion

import (
	"cmp"
	"slices"

	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// Kind distinguishes value exclusions from category exclusions.
type Kind string

// Exclusion kinds.
const (
	KindValue    Kind = "value"
	KindCategory Kind = "category"
)

// Item is one excluded taxonomy value or category.
type Item struct {
	Kind      Kind
	Attribute taxonomy.Name // empty for categories
	Value     string        // value or category name
}

// Value builds a value exclusion.
func Value(attr taxonomy.Name, value string) Item {
	return Item{Kind: KindValue, Attribute: attr, Value: value}
}

// Category builds a category exclusion.
func Category(name string) Item {
	return Item{Kind: KindCategory, Value: name}
}

// Set is an immutable, sorted, de-duplicated collection of items.
type Set struct {
	items []Item
	index map[Item]struct{}
}

// NewSet builds a set from items in any order.
func NewSet(items ...Item) Set {
	index := make(map[Item]struct{}, len(items))
	unique := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := index[it]; ok {
			continue
		}
		index[it] = struct{}{}
		unique = append(unique, it)
	}
	slices.SortFunc(unique, compareItems)
	return Set{items: unique, index: index}
}

// Items returns the excluded items in canonical order.
func (s Set) Items() []Item { return slices.Clone(s.items) }

// Len returns the number of excluded items.
func (s Set) Len() int { return len(s.items) }

// ExcludesValue reports whether attr=value is excluded.
func (s Set) ExcludesValue(attr taxonomy.Name, value string) bool {
	_, ok := s.index[Value(attr, value)]
	return ok
}

// ExcludesCategory reports whether category is excluded.
func (s Set) ExcludesCategory(category string) bool {
	_, ok := s.index[Category(category)]
	return ok
}

// Values returns the excluded values of one attribute.
func (s Set) Values(attr taxonomy.Name) []string {
	var out []string
	for _, it := range s.items {
		if it.Kind == KindValue && it.Attribute == attr {
			out = append(out, it.Value)
		}
	}
	return out
}

// Equal reports whether both sets hold the same items.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.items, other.items)
}

// Union merges sets.
func Union(sets ...Set) Set {
	var all []Item
	for _, s := range sets {
		all = append(all, s.items...)
	}
	return NewSet(all...)
}

func compareItems(a, b Item) int {
	return cmp.Or(
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Attribute, b.Attribute),
		cmp.Compare(a.Value, b.Value),
	)
}

// Any matches every value of a rule dimension, including unspecified.
const Any = ""

// OccasionKey selects occasion rules. Empty fields match anything.
type OccasionKey struct {
	Formality occasion.Formality
	Time      occasion.TimeOfDay
	Location  occasion.Location
	Activity  occasion.Activity
}

// Matches reports whether c satisfies every non-Any field of k. An unspecified
// context dimension only matches Any.
func (k OccasionKey) Matches(c occasion.Context) bool {
	return dimMatches(k.Formality, c.Formality) &&
		dimMatches(k.Time, c.Time) &&
		dimMatches(k.Location, c.Location) &&
		dimMatches(k.Activity, c.Activity)
}

func dimMatches[T ~string](rule, got T) bool {
	return rule == Any || rule == got
}

// OccasionRule excludes items for matching occasions.
type OccasionRule struct {
	When    OccasionKey
	Exclude []Item
}

// Rules holds the two static tables.
type Rules struct {
	occasion []OccasionRule
	weather  map[occasion.WeatherBand][]Item
}

// NewRules builds a rule engine from explicit tables.
func NewRules(occasionRules []OccasionRule, weatherRules map[occasion.WeatherBand][]Item) *Rules {
	w := make(map[occasion.WeatherBand][]Item, len(weatherRules))
	for band, items := range weatherRules {
		w[band] = slices.Clone(items)
	}
	return &Rules{occasion: slices.Clone(occasionRules), weather: w}
}

// Evaluate unions every matching occasion rule with the weather rule.
func (r *Rules) Evaluate(c occasion.Context) Set {
	c = c.Normalize()
	var items []Item
	for _, rule := range r.occasion {
		if rule.When.Matches(c) {
			items = append(items, rule.Exclude...)
		}
	}
	if c.Weather != occasion.WeatherUnspecified {
		items = append(items, r.weather[c.Weather]...)
	}
	return NewSet(items...)
}

// OccasionRules returns a copy of the occasion table.
func (r *Rules) OccasionRules() []OccasionRule { return slices.Clone(r.occasion) }
