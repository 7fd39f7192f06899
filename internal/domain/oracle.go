package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Oracle stages. Attribute scoring requests use StageAttribute.
const (
	StageContext     = "context"
	StageSelection   = "selection"
	StageAttribute   = "attribute"
	StageComposition = "composition"
)

// TextScorer is the shared oracle contract: prompt template plus structured
// input in, JSON-shaped output out.
type TextScorer interface {
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
}

// HealthChecker verifies oracle provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ScoreRequest is a single oracle invocation.
type ScoreRequest struct {
	Stage    string
	Template string
	Input    map[string]any
}

// Render executes the template against Input.
func (r ScoreRequest) Render() (string, error) {
	if strings.TrimSpace(r.Template) == "" {
		return "", fmt.Errorf("empty %s template: %w", r.Stage, ErrOracleInput)
	}
	tmpl, err := template.New(r.Stage).Option("missingkey=error").Parse(r.Template)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", r.Stage, ErrOracleInput)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.Input); err != nil {
		return "", fmt.Errorf("render %s template: %v: %w", r.Stage, err, ErrOracleInput)
	}
	return buf.String(), nil
}

// ScoreResult carries the oracle output and token usage through the decorator chain.
type ScoreResult struct {
	Output           json.RawMessage
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Decode unmarshals Output into v. Decode failures wrap ErrOracleMalformedOutput.
func (r ScoreResult) Decode(v any) error {
	if len(r.Output) == 0 {
		return fmt.Errorf("empty output: %w", ErrOracleMalformedOutput)
	}
	if err := json.Unmarshal(r.Output, v); err != nil {
		return fmt.Errorf("decode output: %v: %w", err, ErrOracleMalformedOutput)
	}
	return nil
}
