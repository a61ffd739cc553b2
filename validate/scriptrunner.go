// Package validate implements the off-thread bundle pre-validation stage:
// running each spend's puzzle, collecting the conditions it reports, and
// verifying the bundle's aggregate BLS signature against the resulting
// (public key, message) pairs.
package validate

import "github.com/chia-network/mempool-core/coins"

// ScriptRunnerError is a typed failure a ScriptRunner can report.
type ScriptRunnerError int

const (
	// GeneratorRuntimeError means the puzzle raised an internal error while
	// executing (a CLVM-level fault, not a cost overrun).
	GeneratorRuntimeError ScriptRunnerError = iota + 1
	// CostExceeded means the cumulative reported cost of running the
	// bundle's puzzles exceeded the caller-supplied limit.
	CostExceeded
)

func (e ScriptRunnerError) Error() string {
	switch e {
	case GeneratorRuntimeError:
		return "generator runtime error"
	case CostExceeded:
		return "block cost exceeds max"
	default:
		return "script runner error"
	}
}

// ScriptRunner evaluates a coin spend's puzzle against its solution and
// reports the cost consumed and the conditions produced. Implementations
// must be deterministic: identical inputs always yield identical output.
type ScriptRunner interface {
	Run(spend coins.CoinSpend, costLimit uint64) (cost uint64, conds coins.SpendConditions, err error)
}
