package engine

import (
	"context"
	"math"
	"strings"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/shockerli/cvt"
	"gorm.io/gorm"
)

// MatchOptions control the invoice-to-PO matcher. Fuzzy matching is off by
// default; when enabled, MinScore bounds the supplier-name similarity.
type MatchOptions struct {
	Fuzzy    bool
	MinScore float64
}

// Matcher binds an invoice to its PO.
type Matcher struct {
	db *gorm.DB
}

func NewMatcher(db *gorm.DB) *Matcher {
	return &Matcher{db: db}
}

// Match tries strategies in order: explicit po_id, then po_reference, then an
// optional fuzzy pass over supplier+amount+date. Returns nil when nothing
// matches.
func (m *Matcher) Match(ctx context.Context, invoice map[string]interface{}, opts MatchOptions) (*uint, error) {
	if poID := cvt.Uint64(invoice["po_id"]); poID > 0 {
		var po entity.PurchaseOrder
		err := m.db.WithContext(ctx).Where("id = ?", poID).First(&po).Error
		if err == nil {
			return &po.ID, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	if ref := str(invoice, "po_reference"); ref != "" {
		var po entity.PurchaseOrder
		err := m.db.WithContext(ctx).Where("po_ref = ?", ref).First(&po).Error
		if err == nil {
			return &po.ID, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	if opts.Fuzzy {
		return m.fuzzyMatch(ctx, invoice, opts)
	}
	return nil, nil
}

// fuzzyMatch scores released POs by supplier similarity, keeping only those
// whose amount is within 10% and whose date is within a week of the invoice.
// The best score at or above MinScore wins.
func (m *Matcher) fuzzyMatch(ctx context.Context, invoice map[string]interface{}, opts MatchOptions) (*uint, error) {
	supplier := str(invoice, "supplier_name")
	amount := cvt.Float64(firstOf(invoice, "total_amount", "amount"))
	if supplier == "" || amount <= 0 {
		return nil, nil
	}

	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = SimilarityThreshold
	}

	query := m.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	if date, err := ParseDate(firstOf(invoice, "invoice_date", "payment_date")); err == nil {
		query = query.Where("po_date BETWEEN ? AND ?", date.AddDate(0, 0, -7), date.AddDate(0, 0, 7))
	}

	var pos []entity.PurchaseOrder
	if err := query.Find(&pos).Error; err != nil {
		return nil, err
	}

	var (
		best      *uint
		bestScore float64
	)
	for i := range pos {
		po := pos[i]
		if po.TotalAmount <= 0 || math.Abs(amount-po.TotalAmount)/po.TotalAmount > 0.1 {
			continue
		}
		score := Similarity(strings.ToLower(supplier), strings.ToLower(po.SupplierName))
		if score >= minScore && score > bestScore {
			best = &po.ID
			bestScore = score
		}
	}
	return best, nil
}
