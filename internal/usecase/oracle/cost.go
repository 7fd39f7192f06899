package oracle

import "strings"

const tokensPerMillion = 1_000_000

// ModelCost is a per-million-token price in USD.
type ModelCost struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// CostTable prices oracle calls by model.
type CostTable map[string]ModelCost

// DefaultCosts lists the models the service is tuned for.
func DefaultCosts() CostTable {
	return CostTable{
		"gpt-4o":           {InputPerMillion: 5.0, OutputPerMillion: 15.0},
		"gpt-4o-mini":      {InputPerMillion: 0.15, OutputPerMillion: 0.6},
		"deepseek-v3":      {InputPerMillion: 0.27, OutputPerMillion: 1.1},
		"deepseek-chat":    {InputPerMillion: 0.27, OutputPerMillion: 1.1},
		"gemini-2.5-flash": {InputPerMillion: 0.40, OutputPerMillion: 0.60},
	}
}

// Estimate returns the USD cost of one call. Unknown models cost 0.
// Provider prefixes like "models/" are ignored.
func (t CostTable) Estimate(model string, promptTokens, completionTokens int) float64 {
	c, ok := t[model]
	if !ok {
		if i := strings.LastIndexByte(model, '/'); i >= 0 {
			c, ok = t[model[i+1:]]
		}
	}
	if !ok {
		return 0
	}
	return float64(promptTokens)*c.InputPerMillion/tokensPerMillion +
		float64(completionTokens)*c.OutputPerMillion/tokensPerMillion
}

// Merge returns a copy of t with overrides applied.
func (t CostTable) Merge(overrides CostTable) CostTable {
	out := make(CostTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
