package oracle

import (
	"context"

	"github.com/allbravos/styletelling-ai/internal/domain"
)

// Router dispatches requests to a per-stage scorer, falling back to a default.
type Router struct {
	fallback domain.TextScorer
	stages   map[string]domain.TextScorer
}

// NewRouter creates a router. stages may be nil.
func NewRouter(fallback domain.TextScorer, stages map[string]domain.TextScorer) *Router {
	if stages == nil {
		stages = map[string]domain.TextScorer{}
	}
	return &Router{fallback: fallback, stages: stages}
}

// Score forwards req to the scorer registered for req.Stage.
func (r *Router) Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResult, error) {
	return r.For(req.Stage).Score(ctx, req) //nolint:wrapcheck // transparent dispatch
}

// For returns the scorer that handles stage.
func (r *Router) For(stage string) domain.TextScorer {
	if s, ok := r.stages[stage]; ok {
		return s
	}
	return r.fallback
}

// HealthCheck checks the default scorer.
func (r *Router) HealthCheck(ctx context.Context) error {
	if hc, ok := r.fallback.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent dispatch
	}
	return nil
}
