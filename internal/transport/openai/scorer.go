// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI,
// DeepSeek, Gemini's compatibility endpoint) to domain.TextScorer.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/metrics"
	"github.com/allbravos/styletelling-ai/internal/transport/llmjson"
)

// DefaultSystemPrompt frames every request.
const DefaultSystemPrompt = "Você é especialista em moda, com conhecimento em IA e semiótica. Responda somente com um objeto JSON."

const defaultRetryDelay = time.Second

// Scorer is an oracle backed by the chat completions endpoint.
type Scorer struct {
	client       *openai.Client
	model        string
	temperature  float32
	systemPrompt string
	retries      int
	retryDelay   time.Duration
	provider     string
	logger       *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	SystemPrompt string
	// Retries is the number of extra attempts after a transient failure.
	Retries    int
	RetryDelay time.Duration
	Provider   string
	Logger     *zap.Logger
}

// NewScorer creates an OpenAI-compatible oracle.
func NewScorer(cfg *Config) *Scorer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// go-openai drops a zero temperature (omitempty); the API then uses 1.0.
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return &Scorer{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		temperature:  temperature,
		systemPrompt: system,
		retries:      max(cfg.Retries, 0),
		retryDelay:   delay,
		provider:     cfg.Provider,
		logger:       logger,
	}
}

// Score implements domain.TextScorer: renders the prompt, asks for a JSON object
// and returns the cleaned-up object with token usage.
func (s *Scorer) Score(ctx context.Context, req domain.ScoreRequest) (domain.ScoreResult, error) {
	prompt, err := req.Render()
	if err != nil {
		return domain.ScoreResult{}, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: s.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := s.create(ctx, req.Stage, chatReq)
	duration := time.Since(start)

	if err != nil {
		s.fail(req.Stage, "api_error")
		return domain.ScoreResult{}, err
	}
	if len(resp.Choices) == 0 {
		s.fail(req.Stage, "empty_response")
		return domain.ScoreResult{}, fmt.Errorf("empty chat response: %w", domain.ErrOracleProvider)
	}

	metrics.OracleRequestsTotal.WithLabelValues(s.provider, s.model, req.Stage, "success").Inc()
	metrics.OracleRequestDuration.WithLabelValues(s.provider, s.model, req.Stage).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.OracleTokensTotal.WithLabelValues(s.provider, s.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.OracleTokensTotal.WithLabelValues(s.provider, s.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	result := domain.ScoreResult{
		Model:            s.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	out, err := llmjson.Extract(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.OracleErrorsTotal.WithLabelValues(s.provider, s.model, "malformed_output").Inc()
		// Usage is returned alongside the error.
		return result, err
	}
	result.Output = out
	return result, nil
}

func (s *Scorer) create(ctx context.Context, stage string, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("Retrying chat completion",
				zap.String("stage", stage),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
		lastErr = err
		if !transient(err) {
			break
		}
	}
	return openai.ChatCompletionResponse{}, parseAPIError(lastErr)
}

func (s *Scorer) fail(stage, errorType string) {
	metrics.OracleRequestsTotal.WithLabelValues(s.provider, s.model, stage, "error").Inc()
	metrics.OracleErrorsTotal.WithLabelValues(s.provider, s.model, errorType).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Scorer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// transient reports whether another attempt may succeed: network failures,
// rate limiting and 5xx responses.
func transient(err error) bool {
	status := 0
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrOracleProvider.
func parseAPIError(err error) error {
	wrap := domain.ErrOracleProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("chat request failed: %v: %w", err, wrap)
}

// extractDetail reads the "detail" field some compatible vendors return instead of "error".
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
