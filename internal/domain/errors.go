package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOracleInput signals empty or malformed input to an oracle call.
	ErrOracleInput = errors.New("oracle input error")
	// ErrOracleTimeout signals an oracle call that exceeded its deadline.
	ErrOracleTimeout = errors.New("oracle timeout")
	// ErrOracleMalformedOutput signals oracle output that failed shape validation.
	ErrOracleMalformedOutput = errors.New("oracle malformed output")
	// ErrOracleProvider signals a vendor-side failure (HTTP error, empty response).
	ErrOracleProvider = errors.New("oracle provider error")
	// ErrOracleQuotaExceeded signals an exhausted oracle token budget.
	ErrOracleQuotaExceeded = errors.New("oracle quota exceeded")

	// ErrRankingInput signals a schema mismatch between pipeline stages.
	ErrRankingInput = errors.New("ranking input error")
	// ErrCatalogUnavailable signals a failed product catalog lookup.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrCacheUnavailable signals an unreachable envelope cache store.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrEmptyQuery signals a request without query text.
	ErrEmptyQuery = errors.New("empty query")
)

// IsOracleFailure reports whether err is one of the recoverable oracle failures.
func IsOracleFailure(err error) bool {
	return errors.Is(err, ErrOracleInput) ||
		errors.Is(err, ErrOracleTimeout) ||
		errors.Is(err, ErrOracleMalformedOutput) ||
		errors.Is(err, ErrOracleProvider) ||
		errors.Is(err, ErrOracleQuotaExceeded)
}

// RankingInputError wraps ErrRankingInput with the offending field.
type RankingInputError struct {
	Field  string
	Reason string
}

func (e *RankingInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrRankingInput.Error(), e.Field, e.Reason)
}

func (e *RankingInputError) Unwrap() error { return ErrRankingInput }

// NewRankingInputError creates a ranking input error.
func NewRankingInputError(field, format string, args ...any) error {
	return &RankingInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// EmptyQueryError is returned by oracle stages that skip the call for a blank query.
// It matches both ErrEmptyQuery and ErrOracleInput.
func EmptyQueryError(stage string) error {
	return fmt.Errorf("%s: %w: %w", stage, ErrOracleInput, ErrEmptyQuery)
}
