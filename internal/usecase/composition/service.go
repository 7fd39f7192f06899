// Package composition weights product categories for a query's scored attributes.
package composition

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// DefaultMinValueScore is the score a value needs to be shown to the composer.
const DefaultMinValueScore = 7.0

// Composer asks the oracle for one weight per registry category.
type Composer struct {
	oracle        domain.TextScorer
	registry      *taxonomy.Registry
	template      string
	minValueScore float64
	logger        *zap.Logger
}

// NewComposer creates a Composer.
func NewComposer(
	oracle domain.TextScorer, registry *taxonomy.Registry, template string,
	minValueScore float64, logger *zap.Logger,
) *Composer {
	return &Composer{
		oracle:        oracle,
		registry:      registry,
		template:      template,
		minValueScore: minValueScore,
		logger:        logger,
	}
}

// Compose returns a weight for every registry category in registry order.
// Excluded values are left out of the prompt.
// On error the weights are still usable: failed or missing categories weigh 0.
func (c *Composer) Compose(
	ctx context.Context, query string, scores []score.AttributeScores, excluded exclusion.Set,
) ([]score.CategoryWeight, error) {
	if strings.TrimSpace(query) == "" {
		return c.zero(), domain.EmptyQueryError(domain.StageComposition)
	}

	res, err := c.oracle.Score(ctx, domain.ScoreRequest{
		Stage:    domain.StageComposition,
		Template: c.template,
		Input: map[string]any{
			"query":      query,
			"attributes": c.highlights(scores, excluded),
			"categories": c.registry.Categories(),
		},
	})
	if err != nil {
		return c.zero(), fmt.Errorf("compose categories: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := res.Decode(&raw); err != nil {
		return c.zero(), fmt.Errorf("compose categories: %w", err)
	}

	parsed, partial := parseWeights(raw)
	return c.weights(parsed, partial)
}

// highlights lists "Label: Value" for allowed values at or above the
// threshold, or the best allowed value when none qualifies.
func (c *Composer) highlights(scores []score.AttributeScores, excluded exclusion.Set) []string {
	var out []string
	for _, as := range scores {
		attr, ok := c.registry.Attribute(as.Attribute)
		if !ok {
			continue
		}
		var best string
		picked := 0
		for _, r := range as.Top(len(as.Records)) {
			if excluded.ExcludesValue(as.Attribute, r.Value) {
				continue
			}
			if best == "" {
				best = r.Value
			}
			if r.Score < c.minValueScore {
				break
			}
			out = append(out, attr.Label()+": "+r.Value)
			picked++
		}
		if picked == 0 && best != "" {
			out = append(out, attr.Label()+": "+best)
		}
	}
	return out
}

// parseWeights accepts {"categories": {"Vestido": 9}} and the positional
// cat_i / cat_i_score pairs. partial reports the positional form, which only
// lists relevant categories.
func parseWeights(raw map[string]json.RawMessage) (map[string]float64, bool) {
	out := make(map[string]float64)
	if cats, ok := raw["categories"]; ok {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(cats, &m); err == nil {
			for k, v := range m {
				if w, ok := score.Parse(v); ok {
					out[k] = w
				}
			}
		}
		return out, false
	}
	for i := 1; ; i++ {
		nameRaw, ok := raw[fmt.Sprintf("cat_%d", i)]
		if !ok {
			break
		}
		var name string
		if err := json.Unmarshal(nameRaw, &name); err != nil {
			continue
		}
		if w, ok := score.Parse(raw[fmt.Sprintf("cat_%d_score", i)]); ok {
			out[name] = w
		}
	}
	return out, true
}

func (c *Composer) weights(parsed map[string]float64, partial bool) ([]score.CategoryWeight, error) {
	byCategory := make(map[string]float64, len(parsed))
	for name, w := range parsed {
		cat, ok := c.registry.ResolveCategory(name)
		if !ok {
			c.logger.Warn("Ignoring unknown category", zap.String("category", name))
			continue
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			w = 0
		}
		byCategory[cat] = w
	}

	cats := c.registry.Categories()
	out := make([]score.CategoryWeight, len(cats))
	var missing []string
	for i, cat := range cats {
		w, ok := byCategory[cat]
		if !ok {
			missing = append(missing, cat)
		}
		out[i] = score.CategoryWeight{Category: cat, Weight: w}
	}
	if len(parsed) == 0 {
		return out, fmt.Errorf("compose categories: no weights in output: %w", domain.ErrOracleMalformedOutput)
	}
	if len(missing) > 0 && !partial {
		c.logger.Warn("Categories missing from composition", zap.Strings("missing", missing))
		return out, fmt.Errorf("compose categories: missing %s: %w",
			strings.Join(missing, ", "), domain.ErrOracleMalformedOutput)
	}
	return out, nil
}

func (c *Composer) zero() []score.CategoryWeight {
	cats := c.registry.Categories()
	out := make([]score.CategoryWeight, len(cats))
	for i, cat := range cats {
		out[i] = score.CategoryWeight{Category: cat}
	}
	return out
}
