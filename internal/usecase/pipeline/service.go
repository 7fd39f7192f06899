// Package pipeline runs the query-to-ranking stages behind the envelope cache
// and streams status events while it works.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	"github.com/allbravos/styletelling-ai/internal/domain/querykey"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/status"
	"github.com/allbravos/styletelling-ai/internal/metrics"
	"github.com/allbravos/styletelling-ai/internal/usecase/ranking"
)

// Deps are the stage implementations. Cache may be nil.
type Deps struct {
	Analyzer ContextAnalyzer
	Rules    ExclusionRules
	Selector AttributeSelector
	Scorer   AttributeScorer
	Composer CategoryComposer
	Catalog  Catalog
	Ranker   Ranker
	Cache    EnvelopeCache
}

// Options tune caching and catalog filtering.
type Options struct {
	CacheEnabled      bool
	SkipDegraded      bool
	MinCategoryWeight float64
	Source            envelope.Source
}

// DefaultOptions caches every envelope, degraded ones included.
func DefaultOptions() Options {
	return Options{CacheEnabled: true, Source: envelope.SourcePipeline}
}

// StageError is a fatal stage failure.
type StageError struct {
	Stage status.Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Service orchestrates the pipeline.
type Service struct {
	deps   Deps
	opts   Options
	flight singleflight.Group
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Service.
func New(deps Deps, opts Options, logger *zap.Logger) *Service {
	if opts.Source == "" {
		opts.Source = envelope.SourcePipeline
	}
	return &Service{
		deps:   deps,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Process streams the events of one query. The sequence ends with exactly one
// result or error event and cannot be restarted.
//
// The computation is detached from ctx: a caller that stops iterating or is
// cancelled leaves in-flight work running so its envelope still reaches the cache.
// Callers with the same canonical key share one computation.
func (s *Service) Process(ctx context.Context, query string) iter.Seq[status.Event] {
	return func(yield func(status.Event) bool) {
		key := querykey.Canonicalize(query)

		if key != "" && s.cacheOn() {
			env, found, err := s.deps.Cache.Get(ctx, key)
			if err != nil {
				s.logger.Warn("Envelope cache lookup failed", zap.String("key", key), zap.Error(err))
			}
			if found {
				metrics.PipelineRunsTotal.WithLabelValues("cache_hit").Inc()
				if !yield(status.CacheHit(key)) {
					return
				}
				yield(resultEvent(env))
				return
			}
		}

		events := make(chan status.Event)
		done := make(chan struct{})
		defer close(done)

		emit := func(e status.Event) {
			select {
			case events <- e:
			case <-done:
			}
		}

		var leader atomic.Bool
		detached := context.WithoutCancel(ctx)
		run := func() (any, error) {
			leader.Store(true)
			return s.compute(detached, query, key, emit)
		}

		var results <-chan singleflight.Result
		if key == "" {
			ch := make(chan singleflight.Result, 1)
			go func() {
				v, err := run()
				ch <- singleflight.Result{Val: v, Err: err}
			}()
			results = ch
		} else {
			results = s.flight.DoChan(key, run)
		}

		for {
			select {
			case e := <-events:
				if !yield(e) {
					return
				}
			case r := <-results:
				if !leader.Load() {
					metrics.PipelineRunsTotal.WithLabelValues("shared").Inc()
				}
				if r.Err != nil {
					stage := status.StageDone
					var se *StageError
					if errors.As(r.Err, &se) {
						stage = se.Stage
					}
					yield(status.Failure(stage, r.Err))
					return
				}
				env, _ := r.Val.(envelope.Envelope)
				yield(resultEvent(env))
				return
			case <-ctx.Done():
				yield(status.Failure(status.StageDone, ctx.Err()))
				return
			}
		}
	}
}

func resultEvent(env envelope.Envelope) status.Event {
	e := status.Result(env.Result)
	e.Data = env
	return e
}

func (s *Service) cacheOn() bool {
	return s.opts.CacheEnabled && s.deps.Cache != nil
}

// tracker collects recovered failures of one computation.
type tracker struct {
	s        *Service
	emit     func(status.Event)
	degraded []string
}

func (r *tracker) degrade(stage status.Stage, fraction float64, err error) {
	metrics.StageDegradedTotal.WithLabelValues(string(stage)).Inc()
	r.s.logger.Warn("Stage degraded", zap.String("stage", string(stage)), zap.Error(err))
	r.degraded = append(r.degraded, fmt.Sprintf("%s: %v", stage, err))
	r.emit(status.Degraded(stage, fraction, err))
}

func observe(stage status.Stage, start time.Time) {
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}

func (s *Service) compute(ctx context.Context, query, key string, emit func(status.Event)) (envelope.Envelope, error) {
	r := &tracker{s: s, emit: emit}
	begin := time.Now()

	emit(status.Progress(status.StageContext, 0.05, "analyzing occasion and weather"))
	start := time.Now()
	occ, err := s.deps.Analyzer.Analyze(ctx, query)
	observe(status.StageContext, start)
	if err != nil {
		r.degrade(status.StageContext, 0.15, err)
	}
	emit(status.Partial(status.StageContext, 0.15, occ))

	exclusions := s.deps.Rules.Evaluate(occ)
	emit(status.Partial(status.StageExclusion, 0.2, exclusions.Items()))

	emit(status.Progress(status.StageSelection, 0.2, "selecting style attributes"))
	start = time.Now()
	sel, err := s.deps.Selector.Select(ctx, query, occ)
	observe(status.StageSelection, start)
	if err != nil {
		r.degrade(status.StageSelection, 0.3, err)
	}
	emit(status.Partial(status.StageSelection, 0.3, sel.Names()))

	emit(status.Progress(status.StageScoring, 0.3, "scoring attribute values"))
	start = time.Now()
	scores := s.deps.Scorer.ScoreAll(ctx, query, occ, sel)
	observe(status.StageScoring, start)
	for _, a := range scores {
		if a.Err != nil {
			r.degrade(status.StageScoring, 0.6, a.Err)
		}
	}
	emit(status.Partial(status.StageScoring, 0.6, scores))

	emit(status.Progress(status.StageComposition, 0.6, "composing categories"))
	start = time.Now()
	weights, err := s.deps.Composer.Compose(ctx, query, scores, exclusions)
	observe(status.StageComposition, start)
	if err != nil {
		r.degrade(status.StageComposition, 0.75, err)
	}
	emit(status.Partial(status.StageComposition, 0.75, weights))

	emit(status.Progress(status.StageCatalog, 0.75, "looking up products"))
	var products []catalog.Product
	if filter := s.filter(weights, exclusions); len(filter.Categories) > 0 {
		start = time.Now()
		products, err = s.deps.Catalog.LookupProducts(ctx, filter)
		observe(status.StageCatalog, start)
		if err != nil {
			metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
			if !errors.Is(err, domain.ErrCatalogUnavailable) {
				err = fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
			}
			return envelope.Envelope{}, &StageError{Stage: status.StageCatalog, Err: err}
		}
	}

	emit(status.Progress(status.StageRanking, 0.9, "ranking products"))
	start = time.Now()
	result, err := s.deps.Ranker.Rank(ranking.Input{
		Records:    score.Flatten(scores),
		Weights:    weights,
		Exclusions: exclusions,
		Products:   products,
	})
	observe(status.StageRanking, start)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return envelope.Envelope{}, &StageError{Stage: status.StageRanking, Err: err}
	}

	env := envelope.Envelope{
		ID:          uuid.NewString(),
		Key:         key,
		QueryRaw:    query,
		NormVersion: querykey.NormVersion,
		Source:      s.opts.Source,
		Context:     occ,
		Selection:   sel.Names(),
		Scores:      scores,
		Weights:     weights,
		Result:      result,
		Degraded:    r.degraded,
		GeneratedAt: s.now(),
	}

	outcome := "ok"
	if env.IsDegraded() {
		outcome = "degraded"
	}
	metrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()

	s.store(ctx, env)

	s.logger.Info("Pipeline completed",
		zap.String("envelope_id", env.ID),
		zap.String("key", key),
		zap.Int("products", result.Len()),
		zap.Int("degraded", len(env.Degraded)),
		zap.Duration("duration", time.Since(begin)),
	)
	return env, nil
}

// filter lists categories that can still rank: weight above the threshold and not excluded.
func (s *Service) filter(weights []score.CategoryWeight, exclusions exclusion.Set) catalog.Filter {
	var cats []string
	for _, w := range weights {
		if w.Weight > s.opts.MinCategoryWeight && !exclusions.ExcludesCategory(w.Category) {
			cats = append(cats, w.Category)
		}
	}
	return catalog.Filter{Categories: cats}
}

func (s *Service) store(ctx context.Context, env envelope.Envelope) {
	if env.Key == "" || !s.cacheOn() {
		return
	}
	if s.opts.SkipDegraded && env.IsDegraded() {
		s.logger.Debug("Skipping cache for degraded envelope", zap.String("key", env.Key))
		return
	}
	stored, err := s.deps.Cache.Put(ctx, env)
	if err != nil {
		s.logger.Warn("Envelope cache store failed", zap.String("key", env.Key), zap.Error(err))
		return
	}
	if !stored {
		s.logger.Debug("Envelope already cached", zap.String("key", env.Key))
	}
}
