package chi

import (
	"time"

	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/ranking"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/status"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeCatalogUnavailable ErrorCode = "catalog_unavailable"
	ErrorCodeRankingInput       ErrorCode = "ranking_input_error"
	ErrorCodeQuotaExceeded      ErrorCode = "oracle_quota_exceeded"
	ErrorCodeOracleProvider     ErrorCode = "oracle_provider_error"
	ErrorCodeTimeout            ErrorCode = "timeout"
	ErrorCodeCancelled          ErrorCode = "cancelled"
	ErrorCodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

type recommendationRequest struct {
	Query string `json:"query"`
}

type contextDTO struct {
	Formality string `json:"formality"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Activity  string `json:"activity"`
	Weather   string `json:"weather"`
}

type exclusionDTO struct {
	Kind      string `json:"kind"`
	Attribute string `json:"attribute,omitempty"`
	Value     string `json:"value"`
}

type recordDTO struct {
	Value         string   `json:"value"`
	Score         *float64 `json:"score"`
	Justification string   `json:"justification,omitempty"`
}

type attributeScoresDTO struct {
	Attribute string      `json:"attribute"`
	Records   []recordDTO `json:"records"`
	Error     string      `json:"error,omitempty"`
}

type weightDTO struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

type factorDTO struct {
	Attribute    string  `json:"attribute"`
	Value        string  `json:"value"`
	Score        float64 `json:"score"`
	Strength     float64 `json:"strength"`
	Contribution float64 `json:"contribution"`
}

type productDTO struct {
	UID            string      `json:"uid"`
	Category       string      `json:"category"`
	Name           string      `json:"name,omitempty"`
	Description    string      `json:"description,omitempty"`
	PriceCents     int64       `json:"price_cents,omitempty"`
	Price          string      `json:"price,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
	Composite      float64     `json:"composite"`
	AttributeSum   float64     `json:"attribute_sum"`
	CategoryWeight float64     `json:"category_weight"`
	Factors        []factorDTO `json:"factors"`
}

type recommendationResponse struct {
	ID          string               `json:"id,omitempty"`
	Key         string               `json:"key"`
	Query       string               `json:"query"`
	Source      string               `json:"source,omitempty"`
	Cached      bool                 `json:"cached"`
	Context     contextDTO           `json:"context"`
	Selection   []string             `json:"selection"`
	Scores      []attributeScoresDTO `json:"scores,omitempty"`
	Weights     []weightDTO          `json:"weights"`
	Products    []productDTO         `json:"products"`
	Degraded    []string             `json:"degraded,omitempty"`
	GeneratedAt *time.Time           `json:"generated_at,omitempty"`
}

type eventDTO struct {
	Kind     string  `json:"kind"`
	Stage    string  `json:"stage"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
	Data     any     `json:"data,omitempty"`
}

type attributeDTO struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Column string   `json:"column"`
	Values []string `json:"values"`
}

type taxonomyResponse struct {
	Attributes    []attributeDTO `json:"attributes"`
	Categories    []string       `json:"categories"`
	SelectionSize int            `json:"selection_size"`
}

type usageResponse struct {
	Period          string    `json:"period"`
	Provider        string    `json:"provider,omitempty"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensRemaining int64     `json:"tokens_remaining"`
	CostUSD         float64   `json:"cost_usd"`
	Exhausted       bool      `json:"exhausted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func contextToDTO(c occasion.Context) contextDTO {
	return contextDTO{
		Formality: string(c.Formality),
		Time:      string(c.Time),
		Location:  string(c.Location),
		Activity:  string(c.Activity),
		Weather:   string(c.Weather),
	}
}

func exclusionsToDTO(items []exclusion.Item) []exclusionDTO {
	out := make([]exclusionDTO, len(items))
	for i, it := range items {
		out[i] = exclusionDTO{Kind: string(it.Kind), Attribute: string(it.Attribute), Value: it.Value}
	}
	return out
}

func namesToDTO(names []taxonomy.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

func scoresToDTO(all []score.AttributeScores) []attributeScoresDTO {
	out := make([]attributeScoresDTO, len(all))
	for i, a := range all {
		d := attributeScoresDTO{Attribute: string(a.Attribute), Records: make([]recordDTO, len(a.Records))}
		if a.Err != nil {
			d.Error = a.Err.Error()
		}
		for j, r := range a.Records {
			rec := recordDTO{Value: r.Value, Justification: r.Justification}
			if !r.Unscored {
				s := r.Score
				rec.Score = &s
			}
			d.Records[j] = rec
		}
		out[i] = d
	}
	return out
}

func weightsToDTO(ws []score.CategoryWeight) []weightDTO {
	out := make([]weightDTO, len(ws))
	for i, w := range ws {
		out[i] = weightDTO{Category: w.Category, Weight: w.Weight}
	}
	return out
}

func productsToDTO(r ranking.Result) []productDTO {
	out := make([]productDTO, len(r.Items))
	for i, it := range r.Items {
		p := productDTO{
			UID:            it.UID,
			Category:       it.Category,
			Name:           it.Product.Name,
			Description:    it.Product.Description,
			PriceCents:     it.Product.PriceCents,
			ImageURL:       it.Product.ImageURL,
			Composite:      it.Composite,
			AttributeSum:   it.AttributeSum,
			CategoryWeight: it.CategoryWeight,
			Factors:        make([]factorDTO, len(it.Factors)),
		}
		if it.Product.PriceCents > 0 {
			p.Price = it.Product.FormattedPrice()
		}
		for j, f := range it.Factors {
			p.Factors[j] = factorDTO{
				Attribute:    string(f.Attribute),
				Value:        f.Value,
				Score:        f.Score,
				Strength:     f.Strength,
				Contribution: f.Contribution,
			}
		}
		out[i] = p
	}
	return out
}

func envelopeToDTO(env envelope.Envelope, cached bool) recommendationResponse {
	resp := recommendationResponse{
		ID:        env.ID,
		Key:       env.Key,
		Query:     env.QueryRaw,
		Source:    string(env.Source),
		Cached:    cached,
		Context:   contextToDTO(env.Context),
		Selection: namesToDTO(env.Selection),
		Scores:    scoresToDTO(env.Scores),
		Weights:   weightsToDTO(env.Weights),
		Products:  productsToDTO(env.Result),
		Degraded:  env.Degraded,
	}
	if !env.GeneratedAt.IsZero() {
		t := env.GeneratedAt.UTC()
		resp.GeneratedAt = &t
	}
	return resp
}

// eventToDTO renders the payload of a stage event for the wire.
func eventToDTO(e status.Event) eventDTO {
	d := eventDTO{
		Kind:     string(e.Kind),
		Stage:    string(e.Stage),
		Progress: e.Progress,
		Message:  e.Message,
	}
	switch v := e.Data.(type) {
	case occasion.Context:
		d.Data = contextToDTO(v)
	case []exclusion.Item:
		d.Data = exclusionsToDTO(v)
	case []taxonomy.Name:
		d.Data = namesToDTO(v)
	case []score.AttributeScores:
		d.Data = scoresToDTO(v)
	case []score.CategoryWeight:
		d.Data = weightsToDTO(v)
	case envelope.Envelope:
		d.Data = envelopeToDTO(v, false)
	case string:
		d.Data = v
	}
	return d
}

// EventView renders any status event, errors included, as one JSON-ready
// value. Error payloads carry the same code and message as the HTTP API.
func EventView(e status.Event) any {
	d := eventToDTO(e)
	if e.Kind == status.KindError {
		d.Data = errorResponse(e)
	}
	return d
}
