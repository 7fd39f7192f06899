package usage

import (
	"context"

	domusage "github.com/allbravos/styletelling-ai/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil when no budget is tracked.
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	if s.br == nil {
		return domusage.Report{Period: period, TokensRemaining: -1}
	}
	u := s.br.Snapshot()

	r := domusage.Report{Period: period, Provider: u.Provider}
	switch period {
	case domusage.PeriodDay:
		r.PeriodStart = u.DayStart
		r.PeriodEnd = u.DayStart.AddDate(0, 0, 1)
		r.TokensUsed = u.DailyUsed
		r.TokensLimit = u.DailyLimit
		r.CostUSD = u.DailyCostUSD
	default:
		r.PeriodStart = u.MonthStart
		r.PeriodEnd = u.MonthStart.AddDate(0, 1, 0)
		r.TokensUsed = u.MonthlyUsed
		r.TokensLimit = u.MonthlyLimit
		r.CostUSD = u.MonthlyCostUSD
	}
	r.TokensRemaining = -1
	if r.TokensLimit > 0 {
		r.TokensRemaining = max(r.TokensLimit-r.TokensUsed, 0)
	}
	return r
}
