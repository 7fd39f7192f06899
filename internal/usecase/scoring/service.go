// Package scoring scores the values of each selected attribute in parallel.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// DefaultWorkers matches the selection size so every attribute runs at once.
const DefaultWorkers = taxonomy.SelectionSize

// Scorer runs one oracle call per selected attribute on a bounded pool.
type Scorer struct {
	oracle    domain.TextScorer
	registry  *taxonomy.Registry
	templates Templates
	pool      *ants.Pool
	logger    *zap.Logger
}

// NewScorer creates a Scorer with a pool of workers goroutines. Call Close to release it.
func NewScorer(
	oracle domain.TextScorer, registry *taxonomy.Registry, templates Templates,
	workers int, logger *zap.Logger,
) (*Scorer, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("scoring pool: %w", err)
	}
	return &Scorer{
		oracle:    oracle,
		registry:  registry,
		templates: templates,
		pool:      pool,
		logger:    logger,
	}, nil
}

// Close releases the worker pool.
func (s *Scorer) Close() {
	s.pool.Release()
}

// ScoreAll returns one entry per selected attribute, in selection order.
// Failed attributes carry unscored records and a non-nil Err.
func (s *Scorer) ScoreAll(ctx context.Context, query string, c occasion.Context, sel taxonomy.Selection) []score.AttributeScores {
	names := sel.Names()
	out := make([]score.AttributeScores, len(names))

	var empty error
	if strings.TrimSpace(query) == "" {
		empty = domain.EmptyQueryError(domain.StageAttribute)
	}
	contextJSON, _ := json.Marshal(c) //nolint:errchkjson // plain string fields

	var wg sync.WaitGroup
	for i, name := range names {
		attr, ok := s.registry.Attribute(name)
		if !ok {
			out[i] = score.AttributeScores{Attribute: name, Err: fmt.Errorf("unknown attribute %q: %w", name, domain.ErrOracleInput)}
			continue
		}
		if empty != nil {
			out[i] = score.Neutral(attr, empty)
			continue
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			out[i] = s.scoreOne(ctx, query, string(contextJSON), attr)
		})
		if err != nil {
			wg.Done()
			out[i] = score.Neutral(attr, fmt.Errorf("submit %s: %v: %w", name, err, domain.ErrOracleProvider))
		}
	}
	wg.Wait()

	return out
}

func (s *Scorer) scoreOne(ctx context.Context, query, contextJSON string, attr taxonomy.Attribute) score.AttributeScores {
	res, err := s.oracle.Score(ctx, domain.ScoreRequest{
		Stage:    domain.StageAttribute,
		Template: s.templates.Attribute(attr.Name()),
		Input: map[string]any{
			"query":     query,
			"context":   contextJSON,
			"attribute": attr.Label(),
			"values":    attr.Values(),
		},
	})
	if err != nil {
		s.logger.Warn("Attribute scoring failed",
			zap.String("attribute", string(attr.Name())),
			zap.Error(err),
		)
		return score.Neutral(attr, fmt.Errorf("score %s: %w", attr.Name(), err))
	}

	var raw map[string]json.RawMessage
	if err := res.Decode(&raw); err != nil {
		return score.Neutral(attr, fmt.Errorf("score %s: %w", attr.Name(), err))
	}

	entries, partial := parseEntries(raw)
	return assemble(attr, entries, partial, s.logger)
}

type entry struct {
	score         float64
	justification string
}

// parseEntries accepts {"<value>": {"score", "justification"}} or {"<value>": n},
// optionally wrapped in {"scores": ...}, and the top-N form value_i_name /
// value_i_score / value_i_justification. partial reports the top-N form, where
// absent values are expected.
func parseEntries(raw map[string]json.RawMessage) (map[string]entry, bool) {
	if inner, ok := raw["scores"]; ok {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(inner, &wrapped); err == nil {
			raw = wrapped
		}
	}

	entries := make(map[string]entry, len(raw))
	if _, ok := raw["value_1_name"]; ok {
		for i := 1; ; i++ {
			nameRaw, ok := raw[fmt.Sprintf("value_%d_name", i)]
			if !ok {
				break
			}
			var name string
			if err := json.Unmarshal(nameRaw, &name); err != nil {
				continue
			}
			sc, ok := score.Parse(raw[fmt.Sprintf("value_%d_score", i)])
			if !ok {
				continue
			}
			var just string
			_ = json.Unmarshal(raw[fmt.Sprintf("value_%d_justification", i)], &just)
			entries[name] = entry{score: sc, justification: just}
		}
		return entries, true
	}

	for key, v := range raw {
		if sc, ok := score.Parse(v); ok {
			entries[key] = entry{score: sc}
			continue
		}
		var obj struct {
			Score         json.RawMessage `json:"score"`
			Justification string          `json:"justification"`
		}
		if err := json.Unmarshal(v, &obj); err != nil {
			continue
		}
		if sc, ok := score.Parse(obj.Score); ok {
			entries[key] = entry{score: sc, justification: obj.Justification}
		}
	}
	return entries, false
}

// assemble emits one record per declared value in declared order.
// When several keys resolve to one value, the exact spelling wins, then the
// first key in sorted order.
func assemble(attr taxonomy.Attribute, entries map[string]entry, partial bool, logger *zap.Logger) score.AttributeScores {
	resolved := make(map[string]entry, len(entries))
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		e := entries[key]
		if v, ok := attr.ResolveValue(key); ok {
			if _, taken := resolved[v]; !taken || key == v {
				resolved[v] = e
			}
			continue
		}
		logger.Debug("Ignoring unknown value", zap.String("attribute", string(attr.Name())), zap.String("value", key))
	}
	if len(resolved) == 0 {
		return score.Neutral(attr, fmt.Errorf("score %s: no known values in output: %w", attr.Name(), domain.ErrOracleMalformedOutput))
	}

	values := attr.Values()
	records := make([]score.Record, len(values))
	var missing []string
	for i, v := range values {
		e, ok := resolved[v]
		if !ok {
			records[i] = score.Unscored(attr.Name(), v)
			missing = append(missing, v)
			continue
		}
		records[i] = score.NewRecord(attr.Name(), v, e.score, e.justification)
	}

	out := score.AttributeScores{Attribute: attr.Name(), Records: records}
	if len(missing) > 0 && !partial {
		out.Err = fmt.Errorf("score %s: missing values %s: %w",
			attr.Name(), strings.Join(missing, ", "), domain.ErrOracleMalformedOutput)
	}
	return out
}

// Failed reports the attributes that fell back, joined into one error.
func Failed(all []score.AttributeScores) error {
	var errs []error
	for _, a := range all {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}
