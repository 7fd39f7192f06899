// Package selection picks the attributes scored for a query.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// Selector asks the oracle to rank the registry attributes and keeps the top ones.
type Selector struct {
	oracle   domain.TextScorer
	registry *taxonomy.Registry
	template string
	logger   *zap.Logger
}

// NewSelector creates a Selector.
func NewSelector(oracle domain.TextScorer, registry *taxonomy.Registry, template string, logger *zap.Logger) *Selector {
	return &Selector{oracle: oracle, registry: registry, template: template, logger: logger}
}

// Select always returns taxonomy.SelectionSize distinct attributes. A non-nil
// error means part or all of the selection came from declaration order.
func (s *Selector) Select(ctx context.Context, query string, c occasion.Context) (taxonomy.Selection, error) {
	if strings.TrimSpace(query) == "" {
		return s.registry.DefaultSelection(), domain.EmptyQueryError(domain.StageSelection)
	}

	contextJSON, _ := json.Marshal(c) //nolint:errchkjson // plain string fields
	attrs := s.registry.Attributes()
	listed := make([]string, len(attrs))
	for i, a := range attrs {
		listed[i] = fmt.Sprintf("%s (%s)", a.Label(), a.Name())
	}

	res, err := s.oracle.Score(ctx, domain.ScoreRequest{
		Stage:    domain.StageSelection,
		Template: s.template,
		Input: map[string]any{
			"query":      query,
			"context":    string(contextJSON),
			"attributes": listed,
			"size":       taxonomy.SelectionSize,
		},
	})
	if err != nil {
		return s.registry.DefaultSelection(), fmt.Errorf("select attributes: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := res.Decode(&raw); err != nil {
		return s.registry.DefaultSelection(), fmt.Errorf("select attributes: %w", err)
	}

	ranked := s.rank(raw)
	names, filled := s.complete(ranked)
	sel, err := taxonomy.NewSelection(s.registry, names)
	if err != nil {
		return s.registry.DefaultSelection(), fmt.Errorf("select attributes: %v: %w", err, domain.ErrOracleMalformedOutput)
	}
	if filled > 0 {
		s.logger.Warn("Attribute selection incomplete, filled from declaration order",
			zap.Int("filled", filled),
			zap.Strings("oracle", namesToStrings(ranked)),
		)
		return sel, fmt.Errorf("select attributes: %d of %d attributes missing: %w",
			filled, taxonomy.SelectionSize, domain.ErrOracleMalformedOutput)
	}
	return sel, nil
}

type candidate struct {
	name  taxonomy.Name
	score float64
	order int
}

// rank resolves oracle names in preference order, distinct and registered only.
// Accepts {"ranking":[{"attribute":..,"score":..}]} or positional att_1..att_N.
func (s *Selector) rank(raw map[string]json.RawMessage) []taxonomy.Name {
	var cands []candidate
	seen := make(map[taxonomy.Name]bool)
	add := func(text string, sc float64) {
		name, ok := s.registry.Resolve(text)
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		cands = append(cands, candidate{name: name, score: sc, order: s.registry.Order(name)})
	}

	if rankingRaw, ok := raw["ranking"]; ok {
		var entries []struct {
			Attribute string          `json:"attribute"`
			Score     json.RawMessage `json:"score"`
		}
		if err := json.Unmarshal(rankingRaw, &entries); err == nil {
			for _, e := range entries {
				sc, _ := score.Parse(e.Score)
				add(e.Attribute, sc)
			}
			slices.SortStableFunc(cands, func(a, b candidate) int {
				if a.score != b.score {
					if a.score > b.score {
						return -1
					}
					return 1
				}
				return a.order - b.order
			})
		}
	} else {
		for i := 1; i <= len(raw); i++ {
			v, ok := raw[fmt.Sprintf("att_%d", i)]
			if !ok {
				continue
			}
			var text string
			if err := json.Unmarshal(v, &text); err == nil {
				add(text, 0)
			}
		}
	}

	out := make([]taxonomy.Name, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}

// complete truncates to SelectionSize and fills the gap in declaration order.
func (s *Selector) complete(ranked []taxonomy.Name) ([]taxonomy.Name, int) {
	names := ranked
	if len(names) > taxonomy.SelectionSize {
		names = names[:taxonomy.SelectionSize]
	}
	names = slices.Clone(names)
	filled := 0
	for _, n := range s.registry.Names() {
		if len(names) == taxonomy.SelectionSize {
			break
		}
		if !slices.Contains(names, n) {
			names = append(names, n)
			filled++
		}
	}
	return names, filled
}

func namesToStrings(names []taxonomy.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
