package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCache   = "cache"
	ComponentOracle  = "oracle"
	ComponentCatalog = "catalog"
)

const checkTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache   Pinger
	oracle  OracleChecker
	catalog Pinger
}

// New creates a Service. Any dependency can be nil and is then skipped.
func New(cache Pinger, oracle OracleChecker, catalog Pinger) *Service {
	return &Service{cache: cache, oracle: oracle, catalog: catalog}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks[ComponentCache] = run(ctx, s.cache.Ping)
	}
	if s.oracle != nil {
		checks[ComponentOracle] = run(ctx, s.oracle.HealthCheck)
	}
	if s.catalog != nil {
		checks[ComponentCatalog] = run(ctx, s.catalog.Ping)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
