package pipeline

import (
	"context"

	"github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	domrank "github.com/allbravos/styletelling-ai/internal/domain/ranking"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
	"github.com/allbravos/styletelling-ai/internal/usecase/ranking"
)

// ContextAnalyzer extracts the occasion context. The context is usable even on error.
type ContextAnalyzer interface {
	Analyze(ctx context.Context, query string) (occasion.Context, error)
}

// ExclusionRules derives the exclusion set from a context.
type ExclusionRules interface {
	Evaluate(c occasion.Context) exclusion.Set
}

// AttributeSelector picks the attributes to score. The selection is usable even on error.
type AttributeSelector interface {
	Select(ctx context.Context, query string, c occasion.Context) (taxonomy.Selection, error)
}

// AttributeScorer scores every selected attribute; failures are carried per attribute.
type AttributeScorer interface {
	ScoreAll(ctx context.Context, query string, c occasion.Context, sel taxonomy.Selection) []score.AttributeScores
}

// CategoryComposer weights categories. The weights are usable even on error.
type CategoryComposer interface {
	Compose(ctx context.Context, query string, scores []score.AttributeScores, excluded exclusion.Set) ([]score.CategoryWeight, error)
}

// Catalog is the read-only product source.
type Catalog interface {
	LookupProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error)
}

// Ranker orders products.
type Ranker interface {
	Rank(in ranking.Input) (domrank.Result, error)
}

// EnvelopeCache stores pipeline outcomes by canonical key, write-once.
type EnvelopeCache interface {
	Get(ctx context.Context, key string) (envelope.Envelope, bool, error)
	Put(ctx context.Context, env envelope.Envelope) (bool, error)
}
