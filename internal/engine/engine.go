// Package engine is the deterministic data-processing core: validation,
// duplicate detection and invoice-to-PO matching. It reads the database but
// never writes; callers decide what to do with its results.
package engine

import (
	"context"
	"fmt"

	"github.com/pkpgroup/matdash/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine bundles the validator, duplicate detector and matcher behind one
// entry point.
type Engine struct {
	validator     *Validator
	detector      *Detector
	matcher       *Matcher
	logger        *zap.Logger
	fuzzyMinScore float64
}

func New(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *Engine {
	return &Engine{
		validator: NewValidator(repos.PurchaseOrder, repos.Payment),
		detector:  NewDetector(db),
		matcher:   NewMatcher(db),
		logger:    logger,
	}
}

// SetFuzzyMinScore sets the default supplier-similarity floor for fuzzy
// matching. Callers can still override it per request through MatchOptions.
func (e *Engine) SetFuzzyMinScore(s float64) { e.fuzzyMinScore = s }

func (e *Engine) Validator() *Validator { return e.validator }
func (e *Engine) Detector() *Detector   { return e.detector }
func (e *Engine) Matcher() *Matcher     { return e.matcher }

// ProcessOptions select the optional steps of a Process run.
type ProcessOptions struct {
	CheckDuplicates  bool
	MatchInvoiceToPO bool
	Match            MatchOptions
}

// ProcessResult is the combined outcome of validation, duplicate detection
// and matching for one record bag. ReadyToSave is true only when the record
// is valid and no duplicates were found.
type ProcessResult struct {
	IsValid     bool                 `json:"is_valid"`
	Errors      []string             `json:"errors"`
	Warnings    []string             `json:"warnings"`
	Duplicates  []DuplicateCandidate `json:"duplicates"`
	MatchedPOID *uint                `json:"matched_po_id"`
	ReadyToSave bool                 `json:"ready_to_save"`
}

// Process runs the full pass over one record bag.
func (e *Engine) Process(ctx context.Context, recordType string, data map[string]interface{}, opts ProcessOptions) (ProcessResult, error) {
	res := ProcessResult{}

	v := e.validator.Validate(ctx, recordType, data)
	res.IsValid = v.IsValid
	res.Errors = v.Errors
	res.Warnings = v.Warnings

	if opts.CheckDuplicates {
		dupes, err := e.detector.Detect(ctx, recordType, data)
		if err != nil {
			return res, fmt.Errorf("duplicate detection: %w", err)
		}
		res.Duplicates = dupes
	}

	if opts.MatchInvoiceToPO && recordType == RecordInvoice {
		if opts.Match.MinScore == 0 {
			opts.Match.MinScore = e.fuzzyMinScore
		}
		poID, err := e.matcher.Match(ctx, data, opts.Match)
		if err != nil {
			return res, fmt.Errorf("invoice matching: %w", err)
		}
		res.MatchedPOID = poID
	}

	res.ReadyToSave = res.IsValid && len(res.Duplicates) == 0

	e.logger.Debug("processed record",
		zap.String("record_type", recordType),
		zap.Bool("is_valid", res.IsValid),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("duplicates", len(res.Duplicates)))

	return res, nil
}

// DuplicateSummary renders a short human-readable report of candidates.
func DuplicateSummary(duplicates []DuplicateCandidate) string {
	if len(duplicates) == 0 {
		return "No duplicates found"
	}
	summary := fmt.Sprintf("Found %d potential duplicate(s):", len(duplicates))
	for i, dup := range duplicates {
		summary += fmt.Sprintf("\n%d. %s (confidence: %.0f%%) %s", i+1, dup.MatchType, dup.Confidence*100, dup.Reason)
	}
	return summary
}
