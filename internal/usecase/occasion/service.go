// Package occasion extracts the occasion and weather context of a query.
package occasion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	domocc "github.com/allbravos/styletelling-ai/internal/domain/occasion"
)

// Analyzer asks the oracle for the query context.
type Analyzer struct {
	oracle   domain.TextScorer
	template string
	logger   *zap.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(oracle domain.TextScorer, template string, logger *zap.Logger) *Analyzer {
	return &Analyzer{oracle: oracle, template: template, logger: logger}
}

// Analyze returns a usable context in every case. A non-nil error means the
// context fell back to unspecified, fully or partly.
func (a *Analyzer) Analyze(ctx context.Context, query string) (domocc.Context, error) {
	if strings.TrimSpace(query) == "" {
		return domocc.UnspecifiedContext(), domain.EmptyQueryError(domain.StageContext)
	}

	res, err := a.oracle.Score(ctx, domain.ScoreRequest{
		Stage:    domain.StageContext,
		Template: a.template,
		Input:    map[string]any{"query": query},
	})
	if err != nil {
		return domocc.UnspecifiedContext(), fmt.Errorf("analyze context: %w", err)
	}

	var out contextOutput
	if err := res.Decode(&out); err != nil {
		return domocc.UnspecifiedContext(), fmt.Errorf("analyze context: %w", err)
	}

	c := out.context()
	a.logger.Debug("Context analyzed",
		zap.String("formality", string(c.Formality)),
		zap.String("time", string(c.Time)),
		zap.String("location", string(c.Location)),
		zap.String("activity", string(c.Activity)),
		zap.String("weather", string(c.Weather)),
	)
	return c, nil
}

// contextOutput accepts the nested {"occasion":{...},"weather":{"climate":...}}
// shape and a flat one with the same field names.
type contextOutput struct {
	Occasion  *occasionFields `json:"occasion"`
	Weather   json.RawMessage `json:"weather"`
	Formality string          `json:"formality"`
	Time      string          `json:"time"`
	Location  string          `json:"location"`
	Activity  string          `json:"activity"`
	Climate   string          `json:"climate"`
}

type occasionFields struct {
	Formality string `json:"formality"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Activity  string `json:"activity"`
}

func (o contextOutput) context() domocc.Context {
	f := occasionFields{Formality: o.Formality, Time: o.Time, Location: o.Location, Activity: o.Activity}
	if o.Occasion != nil {
		f = *o.Occasion
	}
	return domocc.Context{
		Formality: domocc.ParseFormality(f.Formality),
		Time:      domocc.ParseTimeOfDay(f.Time),
		Location:  domocc.ParseLocation(f.Location),
		Activity:  domocc.ParseActivity(f.Activity),
		Weather:   domocc.ParseWeather(o.climate()),
	}
}

func (o contextOutput) climate() string {
	if len(o.Weather) == 0 {
		return o.Climate
	}
	var nested struct {
		Climate string `json:"climate"`
	}
	if err := json.Unmarshal(o.Weather, &nested); err == nil {
		return nested.Climate
	}
	var flat string
	if err := json.Unmarshal(o.Weather, &flat); err == nil {
		return flat
	}
	return ""
}
