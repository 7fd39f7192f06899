package usage

import "github.com/allbravos/styletelling-ai/internal/usecase/oracle"

// BudgetReader provides read-only access to oracle budget state.
type BudgetReader interface {
	Snapshot() oracle.Usage
}
