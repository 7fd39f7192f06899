package styletelling

import "time"

// Context is the occasion extracted from the query.
type Context struct {
	Formality string `json:"formality"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Activity  string `json:"activity"`
	Weather   string `json:"weather"`
}

// Exclusion is an explicit negative preference found in the query.
type Exclusion struct {
	Kind      string `json:"kind"`
	Attribute string `json:"attribute,omitempty"`
	Value     string `json:"value"`
}

// Record is one scored taxonomy value. Score is nil when the value was not scored.
type Record struct {
	Value         string   `json:"value"`
	Score         *float64 `json:"score"`
	Justification string   `json:"justification,omitempty"`
}

// AttributeScores holds the value scores of one selected attribute.
type AttributeScores struct {
	Attribute string   `json:"attribute"`
	Records   []Record `json:"records"`
	Error     string   `json:"error,omitempty"`
}

// Weight is the importance of a product category for the occasion.
type Weight struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// Factor is one attribute's contribution to a product's composite score.
type Factor struct {
	Attribute    string  `json:"attribute"`
	Value        string  `json:"value"`
	Score        float64 `json:"score"`
	Strength     float64 `json:"strength"`
	Contribution float64 `json:"contribution"`
}

// Product is a ranked catalog item.
type Product struct {
	UID            string   `json:"uid"`
	Category       string   `json:"category"`
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	PriceCents     int64    `json:"price_cents,omitempty"`
	Price          string   `json:"price,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Composite      float64  `json:"composite"`
	AttributeSum   float64  `json:"attribute_sum"`
	CategoryWeight float64  `json:"category_weight"`
	Factors        []Factor `json:"factors"`
}

// Recommendation is the full outcome of one query.
type Recommendation struct {
	ID          string            `json:"id,omitempty"`
	Key         string            `json:"key"`
	Query       string            `json:"query"`
	Source      string            `json:"source,omitempty"`
	Cached      bool              `json:"cached"`
	Context     Context           `json:"context"`
	Selection   []string          `json:"selection"`
	Scores      []AttributeScores `json:"scores,omitempty"`
	Weights     []Weight          `json:"weights"`
	Products    []Product         `json:"products"`
	Degraded    []string          `json:"degraded,omitempty"`
	GeneratedAt *time.Time        `json:"generated_at,omitempty"`
}

// Attribute is one taxonomy attribute and its allowed values.
type Attribute struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// Taxonomy lists the attributes and catalog categories known to the server.
type Taxonomy struct {
	Attributes    []Attribute `json:"attributes"`
	Categories    []string    `json:"categories"`
	SelectionSize int         `json:"selection_size"`
}

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains oracle token usage for a period.
type UsageReport struct {
	Period          UsagePeriod `json:"period"`
	Provider        string      `json:"provider,omitempty"`
	PeriodStart     time.Time   `json:"period_start"`
	PeriodEnd       time.Time   `json:"period_end"`
	TokensUsed      int64       `json:"tokens_used"`
	TokensLimit     int64       `json:"tokens_limit"`
	TokensRemaining int64       `json:"tokens_remaining"`
	CostUSD         float64     `json:"cost_usd"`
	Exhausted       bool        `json:"exhausted"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Healthy reports whether every component is up.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }
