package detection

import "errors"

var (
	// ErrSchema means the input table lacks a required column. It aborts the run.
	ErrSchema = errors.New("price table schema")

	// Per-entity skip conditions. None of these fail a run.
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrFlatPrice           = errors.New("flat price")
	ErrDegenerateMedian    = errors.New("non-positive median")
)

// Entity outcomes, used as metric labels and summary keys.
const (
	OutcomeFlagged      = "flagged"
	OutcomeClean        = "clean"
	OutcomeInsufficient = "insufficient_history"
	OutcomeFlat         = "flat_price"
	OutcomeDegenerate   = "degenerate_median"
)

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientHistory):
		return OutcomeInsufficient
	case errors.Is(err, ErrFlatPrice):
		return OutcomeFlat
	case errors.Is(err, ErrDegenerateMedian):
		return OutcomeDegenerate
	default:
		return ""
	}
}
