package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64, costUSD float64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedScorer wraps a TextScorer with a per-call deadline, budget
// enforcement and cost accounting. Transport metrics are recorded by the adapter.
type InstrumentedScorer struct {
	inner    domain.TextScorer
	provider string
	model    string
	timeout  time.Duration
	budget   BudgetChecker
	costs    CostTable
	logger   *zap.Logger
}

// NewInstrumentedScorer wraps inner. budget can be nil; timeout <= 0 disables the deadline.
func NewInstrumentedScorer(
	inner domain.TextScorer, provider, model string, timeout time.Duration,
	budget BudgetChecker, costs CostTable, logger *zap.Logger,
) *InstrumentedScorer {
	return &InstrumentedScorer{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		budget:   budget,
		costs:    costs,
		logger:   logger,
	}
}

// Score checks the budget, delegates under the deadline and records usage.
func (s *InstrumentedScorer) Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResult, error) {
	if s.budget != nil {
		if err := s.budget.Check(ctx); err != nil {
			s.logger.Error("Oracle budget exceeded",
				zap.String("provider", s.provider),
				zap.String("stage", req.Stage),
				zap.Error(err),
			)
			return domain.ScoreResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.inner.Score(callCtx, req)
	duration := time.Since(start)

	if err != nil {
		// Malformed output still consumed tokens.
		if result.TotalTokens > 0 {
			s.account(req.Stage, result)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s after %s: %w", req.Stage, s.timeout, domain.ErrOracleTimeout)
		}
		s.logger.Warn("Oracle request failed",
			zap.String("provider", s.provider),
			zap.String("model", s.model),
			zap.String("stage", req.Stage),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.ScoreResult{}, fmt.Errorf("score: %w", err)
	}

	model, cost := s.account(req.Stage, result)

	s.logger.Debug("Oracle request completed",
		zap.String("provider", s.provider),
		zap.String("model", model),
		zap.String("stage", req.Stage),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Float64("cost_usd", cost),
	)

	return result, nil
}

// account records cost and budget usage of one call.
func (s *InstrumentedScorer) account(stage string, result domain.ScoreResult) (string, float64) {
	model := result.Model
	if model == "" {
		model = s.model
	}
	cost := s.costs.Estimate(model, result.PromptTokens, result.CompletionTokens)
	if cost > 0 {
		metrics.OracleCostUSDTotal.WithLabelValues(model, stage).Add(cost)
	}

	if s.budget != nil && (result.TotalTokens > 0 || cost > 0) {
		s.budget.Record(int64(result.TotalTokens), cost)
		remaining := metrics.OracleBudgetTokensRemaining
		remaining.WithLabelValues(s.provider, "daily").Set(float64(s.budget.RemainingDaily()))
		remaining.WithLabelValues(s.provider, "monthly").Set(float64(s.budget.RemainingMonthly()))
	}
	return model, cost
}

// HealthCheck delegates to the wrapped scorer when it supports health checks.
func (s *InstrumentedScorer) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
