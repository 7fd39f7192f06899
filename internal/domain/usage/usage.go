// Package usage describes oracle token and spend reports.
package usage

import "time"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty defaults to PeriodMonth.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, true
	case PeriodDay:
		return PeriodDay, true
	}
	return "", false
}

// Report is the oracle consumption of one provider for one period.
type Report struct {
	Period          Period
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Provider        string
	TokensUsed      int64
	TokensLimit     int64 // 0 = unlimited
	TokensRemaining int64 // -1 = unlimited
	CostUSD         float64
}

// Exhausted reports whether a limited budget has no tokens left.
func (r Report) Exhausted() bool {
	return r.TokensLimit > 0 && r.TokensRemaining <= 0
}
