package styletelling

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by *APIError through errors.Is.
var (
	ErrBadRequest         = errors.New("styletelling: bad request")
	ErrUnauthorized       = errors.New("styletelling: unauthorized")
	ErrCatalogUnavailable = errors.New("styletelling: catalog unavailable")
	ErrRankingInput       = errors.New("styletelling: ranking input error")
	ErrQuotaExceeded      = errors.New("styletelling: oracle quota exceeded")
	ErrOracleProvider     = errors.New("styletelling: oracle provider error")
	ErrTimeout            = errors.New("styletelling: timeout")
	ErrCancelled          = errors.New("styletelling: cancelled")
	ErrInternal           = errors.New("styletelling: internal error")
	ErrUnavailable        = errors.New("styletelling: service unavailable")
)

var codeSentinels = map[string]error{
	"bad_request":           ErrBadRequest,
	"validation_failed":     ErrBadRequest,
	"unauthorized":          ErrUnauthorized,
	"catalog_unavailable":   ErrCatalogUnavailable,
	"ranking_input_error":   ErrRankingInput,
	"oracle_quota_exceeded": ErrQuotaExceeded,
	"oracle_provider_error": ErrOracleProvider,
	"timeout":               ErrTimeout,
	"cancelled":             ErrCancelled,
	"internal_error":        ErrInternal,
}

// APIError is a failure reported by the server, either as an HTTP error
// response or as the error event of a stream.
type APIError struct {
	StatusCode int    `json:"-"` // 0 for stream error events
	Code       string `json:"code"`
	Message    string `json:"message"`
	Stage      string `json:"stage,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("styletelling: %d %s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("styletelling: %s: %s", e.Code, msg)
}

// Is reports whether target is the sentinel for this error's code.
func (e *APIError) Is(target error) bool {
	if s, ok := codeSentinels[e.Code]; ok {
		return s == target
	}
	return target == ErrUnavailable && e.StatusCode == 503
}
