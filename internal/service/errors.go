package service

import (
	"strings"

	"github.com/pkpgroup/matdash/internal/engine"
)

// ValidationError carries the engine's rule failures so the handler can
// return them as a structured 400 instead of a bare message.
type ValidationError struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// DuplicateError blocks a write when the detector found likely duplicates
// and the caller did not force the save.
type DuplicateError struct {
	Candidates []engine.DuplicateCandidate `json:"duplicates"`
}

func (e *DuplicateError) Error() string {
	return engine.DuplicateSummary(e.Candidates)
}

// BudgetError blocks a payment write that would push the PO over its total.
type BudgetError struct {
	Outcome engine.BudgetOutcome `json:"outcome"`
}

func (e *BudgetError) Error() string {
	return e.Outcome.Message
}
