// Package envelope defines the cached outcome of one pipeline run.
package envelope

import (
	"time"

	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/ranking"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// Source records how an envelope was produced.
type Source string

// Envelope sources.
const (
	SourcePipeline Source = "pipeline"
	SourcePrewarm  Source = "prewarm"
)

// Envelope is immutable once stored: a later run with the same key is a hit,
// never an update.
type Envelope struct {
	ID          string
	Key         string
	QueryRaw    string
	NormVersion string
	Source      Source
	Context     occasion.Context
	Selection   []taxonomy.Name
	Scores      []score.AttributeScores
	Weights     []score.CategoryWeight
	Result      ranking.Result
	Degraded    []string
	GeneratedAt time.Time
}

// IsDegraded reports whether any stage fell back while producing the envelope.
func (e Envelope) IsDegraded() bool { return len(e.Degraded) > 0 }
