package health

import "context"

// Pinger checks a backing store (cache store, catalog database).
type Pinger interface {
	Ping(ctx context.Context) error
}

// OracleChecker checks oracle provider availability.
type OracleChecker interface {
	HealthCheck(ctx context.Context) error
}
