// Package ranking turns scores, weights and catalog products into an ordered list.
package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	domrank "github.com/allbravos/styletelling-ai/internal/domain/ranking"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// Options tune ranking. Zero limits mean unlimited.
type Options struct {
	MinCategoryWeight float64
	PerCategoryLimit  int
	MaxProducts       int
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{PerCategoryLimit: 3, MaxProducts: 15}
}

// Input is everything one ranking pass consumes.
type Input struct {
	Records    []score.Record
	Weights    []score.CategoryWeight
	Exclusions exclusion.Set
	Products   []catalog.Product
}

// Ranker is the pure ranking engine.
type Ranker struct {
	registry *taxonomy.Registry
	opts     Options
}

// NewRanker creates a Ranker.
func NewRanker(registry *taxonomy.Registry, opts Options) *Ranker {
	return &Ranker{registry: registry, opts: opts}
}

// Rank validates in and returns products ordered by composite score desc, then UID asc.
// Validation failures are *domain.RankingInputError.
func (r *Ranker) Rank(in Input) (domrank.Result, error) {
	if err := r.validate(in); err != nil {
		return domrank.Result{}, err
	}

	type key struct {
		attr  taxonomy.Name
		value string
	}
	scores := make(map[key]float64, len(in.Records))
	for _, rec := range in.Records {
		if !rec.Unscored {
			scores[key{rec.Attribute, rec.Value}] = rec.Score
		}
	}
	weights := score.Weights(in.Weights)

	items := make([]domrank.Item, 0, len(in.Products))
	for _, p := range in.Products {
		if excluded(in.Exclusions, p) {
			continue
		}
		weight := weights[p.Category]
		if weight <= r.opts.MinCategoryWeight {
			continue
		}

		var sum float64
		var factors []domrank.Factor
		for _, a := range p.Assignments {
			sc, ok := scores[key{a.Attribute, a.Value}]
			if !ok {
				continue
			}
			contribution := a.Strength * sc
			sum += contribution
			factors = append(factors, domrank.Factor{
				Attribute:    a.Attribute,
				Value:        a.Value,
				Score:        sc,
				Strength:     a.Strength,
				Contribution: contribution,
			})
		}
		slices.SortFunc(factors, func(a, b domrank.Factor) int {
			if c := cmp.Compare(b.Contribution, a.Contribution); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Attribute, b.Attribute); c != 0 {
				return c
			}
			return cmp.Compare(a.Value, b.Value)
		})

		items = append(items, domrank.Item{
			UID:            p.UID,
			Category:       p.Category,
			Composite:      sum * weight,
			AttributeSum:   sum,
			CategoryWeight: weight,
			Factors:        factors,
			Product:        p,
		})
	}

	slices.SortFunc(items, func(a, b domrank.Item) int {
		if c := cmp.Compare(b.Composite, a.Composite); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})

	return domrank.Result{Items: r.limit(items)}, nil
}

func (r *Ranker) limit(items []domrank.Item) []domrank.Item {
	out := items[:0]
	perCategory := make(map[string]int)
	for _, it := range items {
		if r.opts.MaxProducts > 0 && len(out) == r.opts.MaxProducts {
			break
		}
		if r.opts.PerCategoryLimit > 0 && perCategory[it.Category] == r.opts.PerCategoryLimit {
			continue
		}
		perCategory[it.Category]++
		out = append(out, it)
	}
	return out
}

func excluded(set exclusion.Set, p catalog.Product) bool {
	if set.ExcludesCategory(p.Category) {
		return true
	}
	for _, a := range p.Assignments {
		if set.ExcludesValue(a.Attribute, a.Value) {
			return true
		}
	}
	return false
}

func (r *Ranker) validate(in Input) error {
	for i, rec := range in.Records {
		attr, ok := r.registry.Attribute(rec.Attribute)
		if !ok {
			return domain.NewRankingInputError("records", "record %d: unknown attribute %q", i, rec.Attribute)
		}
		if !attr.HasValue(rec.Value) {
			return domain.NewRankingInputError("records", "record %d: unknown %s value %q", i, rec.Attribute, rec.Value)
		}
		if math.IsNaN(rec.Score) || rec.Score < score.Min || rec.Score > score.Max {
			return domain.NewRankingInputError("records", "record %d: score %v out of range", i, rec.Score)
		}
	}
	for i, w := range in.Weights {
		if !r.registry.HasCategory(w.Category) {
			return domain.NewRankingInputError("weights", "weight %d: unknown category %q", i, w.Category)
		}
		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) || w.Weight < 0 {
			return domain.NewRankingInputError("weights", "weight %d: invalid weight %v", i, w.Weight)
		}
	}
	seen := make(map[string]struct{}, len(in.Products))
	for i, p := range in.Products {
		if p.UID == "" {
			return domain.NewRankingInputError("products", "product %d: empty uid", i)
		}
		if _, dup := seen[p.UID]; dup {
			return domain.NewRankingInputError("products", "duplicate uid %q", p.UID)
		}
		seen[p.UID] = struct{}{}
		for _, a := range p.Assignments {
			if math.IsNaN(a.Strength) || math.IsInf(a.Strength, 0) || a.Strength < 0 {
				return domain.NewRankingInputError("products", "product %s: invalid strength %v for %s", p.UID, a.Strength, a.Attribute)
			}
		}
	}
	return nil
}
