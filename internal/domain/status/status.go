// Package status defines the events streamed while a query is processed.
package status

import (
	"github.com/allbravos/styletelling-ai/internal/domain/ranking"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageCache       Stage = "cache"
	StageContext     Stage = "context"
	StageExclusion   Stage = "exclusion"
	StageSelection   Stage = "selection"
	StageScoring     Stage = "scoring"
	StageComposition Stage = "composition"
	StageCatalog     Stage = "catalog"
	StageRanking     Stage = "ranking"
	StageDone        Stage = "done"
)

// Kind classifies an event.
type Kind string

// Event kinds. A stream ends with exactly one KindResult or KindError.
const (
	KindProgress Kind = "progress"
	KindPartial  Kind = "partial"
	KindDegraded Kind = "degraded"
	KindCacheHit Kind = "cache_hit"
	KindResult   Kind = "result"
	KindError    Kind = "error"
)

// Event is one status update.
type Event struct {
	Kind     Kind
	Stage    Stage
	Progress float64
	Message  string
	Data     any
	Result   *ranking.Result
	Err      error
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == KindResult || e.Kind == KindError
}

// Progress builds a stage-boundary event.
func Progress(stage Stage, fraction float64, msg string) Event {
	return Event{Kind: KindProgress, Stage: stage, Progress: fraction, Message: msg}
}

// Partial carries intermediate stage output.
func Partial(stage Stage, fraction float64, data any) Event {
	return Event{Kind: KindPartial, Stage: stage, Progress: fraction, Data: data}
}

// Degraded marks a recovered failure.
func Degraded(stage Stage, fraction float64, err error) Event {
	return Event{Kind: KindDegraded, Stage: stage, Progress: fraction, Message: err.Error(), Err: err}
}

// CacheHit marks a result served from the envelope cache.
func CacheHit(key string) Event {
	return Event{Kind: KindCacheHit, Stage: StageCache, Progress: 1, Message: "served from cache", Data: key}
}

// Result terminates the stream successfully.
func Result(r ranking.Result) Event {
	return Event{Kind: KindResult, Stage: StageDone, Progress: 1, Result: &r}
}

// Failure terminates the stream with an error.
func Failure(stage Stage, err error) Event {
	return Event{Kind: KindError, Stage: stage, Progress: 1, Message: err.Error(), Err: err}
}
