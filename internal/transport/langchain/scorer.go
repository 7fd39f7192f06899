// Package langchain adapts any langchaingo chat model to domain.TextScorer.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/metrics"
	"github.com/allbravos/styletelling-ai/internal/transport/llmjson"
)

const (
	defaultSystemPrompt = "Você é especialista em moda, com conhecimento em IA e semiótica. Responda somente com um objeto JSON."
	defaultAttempts     = 2
)

// ErrNoModel is returned when a Config names no model.
var ErrNoModel = errors.New("langchain: model is required")

// Config holds the model settings.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
	// Attempts bounds generations per request when the output is not valid JSON.
	Attempts int
	Provider string
	Logger   *zap.Logger
}

// Scorer asks a langchaingo model for a JSON object.
type Scorer struct {
	llm          llms.Model
	model        string
	temperature  float64
	systemPrompt string
	attempts     int
	provider     string
	logger       *zap.Logger
}

// NewScorer builds an OpenAI-compatible langchaingo client.
func NewScorer(cfg *Config) (*Scorer, error) {
	if cfg.Model == "" {
		return nil, ErrNoModel
	}
	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	token := cfg.APIKey
	if token == "" {
		// local OpenAI-compatible servers accept any token
		token = "none"
	}
	opts = append(opts, openai.WithToken(token))

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain model: %w", err)
	}
	return NewScorerWithModel(llm, cfg), nil
}

// NewScorerWithModel wraps an existing langchaingo model.
func NewScorerWithModel(llm llms.Model, cfg *Config) *Scorer {
	system := cfg.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		llm:          llm,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		systemPrompt: system,
		attempts:     attempts,
		provider:     cfg.Provider,
		logger:       logger.With(zap.String("component", "langchain-scorer")),
	}
}

// Score implements domain.TextScorer. Unparseable output is regenerated up to
// the configured number of attempts; usage accumulates across attempts.
func (s *Scorer) Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResult, error) {
	prompt, err := req.Render()
	if err != nil {
		return domain.ScoreResult{}, err
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	result := domain.ScoreResult{Model: s.model}
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		resp, err := s.llm.GenerateContent(ctx, content,
			llms.WithTemperature(s.temperature),
			llms.WithJSONMode(),
		)
		if err != nil {
			s.fail(req.Stage, "api_error")
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			return result, fmt.Errorf("generate content: %v: %w", err, domain.ErrOracleProvider)
		}
		if len(resp.Choices) == 0 {
			s.fail(req.Stage, "empty_response")
			return result, fmt.Errorf("no choices returned: %w", domain.ErrOracleProvider)
		}

		choice := resp.Choices[0]
		addUsage(&result, choice.GenerationInfo)

		out, err := llmjson.Extract(choice.Content)
		if err == nil {
			result.Output = out
			lastErr = nil
			break
		}
		lastErr = err
		metrics.OracleErrorsTotal.WithLabelValues(s.provider, s.model, "malformed_output").Inc()
		s.logger.Warn("Malformed model output",
			zap.String("stage", req.Stage),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	metrics.OracleRequestDuration.WithLabelValues(s.provider, s.model, req.Stage).Observe(time.Since(start).Seconds())
	if result.TotalTokens > 0 {
		metrics.OracleTokensTotal.WithLabelValues(s.provider, s.model, "prompt").Add(float64(result.PromptTokens))
		metrics.OracleTokensTotal.WithLabelValues(s.provider, s.model, "completion").Add(float64(result.CompletionTokens))
	}
	if lastErr != nil {
		metrics.OracleRequestsTotal.WithLabelValues(s.provider, s.model, req.Stage, "error").Inc()
		return result, lastErr
	}
	metrics.OracleRequestsTotal.WithLabelValues(s.provider, s.model, req.Stage, "success").Inc()
	return result, nil
}

// HealthCheck issues a one-token generation.
func (s *Scorer) HealthCheck(ctx context.Context) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, s.llm, "ping", llms.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return nil
}

func (s *Scorer) fail(stage, errorType string) {
	metrics.OracleRequestsTotal.WithLabelValues(s.provider, s.model, stage, "error").Inc()
	metrics.OracleErrorsTotal.WithLabelValues(s.provider, s.model, errorType).Inc()
}

// addUsage reads token counts from the generation info reported by the provider.
func addUsage(r *domain.ScoreResult, info map[string]any) {
	prompt := intValue(info["PromptTokens"])
	completion := intValue(info["CompletionTokens"])
	total := intValue(info["TotalTokens"])
	if total == 0 {
		total = prompt + completion
	}
	r.PromptTokens += prompt
	r.CompletionTokens += completion
	r.TotalTokens += total
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
