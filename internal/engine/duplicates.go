package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/shockerli/cvt"
	"gorm.io/gorm"
)

// SimilarityThreshold is the minimum supplier-name ratio for a fuzzy PO match.
const SimilarityThreshold = 0.85

// DuplicateCandidate is one existing record flagged as a possible duplicate
// of incoming data. Confidence is 1.0 for exact key matches.
type DuplicateCandidate struct {
	ID         uint                   `json:"id"`
	MatchType  string                 `json:"match_type"`
	Confidence float64                `json:"confidence"`
	Reason     string                 `json:"reason"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Detector finds likely duplicates of an incoming record. It only reads.
type Detector struct {
	db *gorm.DB
}

func NewDetector(db *gorm.DB) *Detector {
	return &Detector{db: db}
}

// Detect routes the bag by record type and returns candidates sorted with the
// highest confidence first.
func (d *Detector) Detect(ctx context.Context, recordType string, data map[string]interface{}) ([]DuplicateCandidate, error) {
	var (
		candidates []DuplicateCandidate
		err        error
	)
	switch recordType {
	case RecordLPORelease:
		candidates, err = d.detectPO(ctx, data)
	case RecordInvoice:
		candidates, err = d.detectInvoice(ctx, data)
	case RecordDelivery:
		candidates, err = d.detectDelivery(ctx, data)
	case RecordSubmittal:
		// no submittal duplicate rules yet; an empty list is a valid outcome
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates, nil
}

func (d *Detector) detectPO(ctx context.Context, data map[string]interface{}) ([]DuplicateCandidate, error) {
	var candidates []DuplicateCandidate

	// Exact PO number match.
	if ref := str(data, "lpo_number"); ref != "" {
		var po entity.PurchaseOrder
		err := d.db.WithContext(ctx).Where("po_ref = ?", ref).First(&po).Error
		if err == nil {
			candidates = append(candidates, DuplicateCandidate{
				ID:         po.ID,
				MatchType:  "Exact PO Number",
				Confidence: 1.0,
				Reason:     "PO number '" + ref + "' already exists",
				Fields: map[string]interface{}{
					"lpo_number": po.PORef,
					"supplier":   po.SupplierName,
					"amount":     po.TotalAmount,
				},
			})
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	// Window search: same material, release date within a week, similar
	// supplier name and amount.
	supplier := str(data, "supplier_name")
	materialID := cvt.Uint64(data["material_id"])
	releaseDate, dateErr := ParseDate(data["release_date"])
	if supplier != "" && materialID > 0 && dateErr == nil {
		var pos []entity.PurchaseOrder
		err := d.db.WithContext(ctx).
			Where("material_id = ?", materialID).
			Where("po_date BETWEEN ? AND ?", releaseDate.AddDate(0, 0, -7), releaseDate.AddDate(0, 0, 7)).
			Find(&pos).Error
		if err != nil {
			return nil, err
		}

		amount := cvt.Float64(data["amount"])
		for _, po := range pos {
			sim := Similarity(strings.ToLower(supplier), strings.ToLower(po.SupplierName))
			amountSimilar := false
			if amount > 0 && po.TotalAmount > 0 {
				amountSimilar = math.Abs(amount-po.TotalAmount)/po.TotalAmount < 0.1
			}
			if sim >= SimilarityThreshold && amountSimilar {
				candidates = append(candidates, DuplicateCandidate{
					ID:         po.ID,
					MatchType:  "Similar PO",
					Confidence: sim,
					Reason:     "Similar PO exists (released " + dateString(po.PODate) + ")",
					Fields: map[string]interface{}{
						"lpo_number": po.PORef,
						"supplier":   po.SupplierName,
						"amount":     po.TotalAmount,
					},
				})
			}
		}
	}

	return candidates, nil
}

func (d *Detector) detectInvoice(ctx context.Context, data map[string]interface{}) ([]DuplicateCandidate, error) {
	var candidates []DuplicateCandidate

	invoiceRef := str(data, "invoice_number")
	if invoiceRef == "" {
		invoiceRef = str(data, "invoice_ref")
	}
	if invoiceRef != "" {
		var p entity.Payment
		err := d.db.WithContext(ctx).Where("invoice_ref = ?", invoiceRef).First(&p).Error
		if err == nil {
			candidates = append(candidates, DuplicateCandidate{
				ID:         p.ID,
				MatchType:  "Exact Invoice Reference",
				Confidence: 1.0,
				Reason:     "Invoice reference '" + invoiceRef + "' already exists",
				Fields: map[string]interface{}{
					"invoice_ref": p.InvoiceRef,
					"po_id":       p.POID,
					"amount":      p.PaidAmount,
				},
			})
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	if paymentRef := str(data, "payment_ref"); paymentRef != "" {
		var p entity.Payment
		err := d.db.WithContext(ctx).Where("payment_ref = ?", paymentRef).First(&p).Error
		if err == nil && !containsID(candidates, p.ID) {
			candidates = append(candidates, DuplicateCandidate{
				ID:         p.ID,
				MatchType:  "Exact Payment Reference",
				Confidence: 1.0,
				Reason:     "Payment reference '" + paymentRef + "' already exists",
				Fields: map[string]interface{}{
					"payment_ref": p.PaymentRef,
					"po_id":       p.POID,
					"amount":      p.PaidAmount,
				},
			})
		} else if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	return candidates, nil
}

func (d *Detector) detectDelivery(ctx context.Context, data map[string]interface{}) ([]DuplicateCandidate, error) {
	poID := cvt.Uint64(data["po_id"])
	if poID == 0 {
		poID = cvt.Uint64(data["lpo_id"])
	}
	deliveryDate, dateErr := ParseDate(data["delivery_date"])
	if poID == 0 || dateErr != nil {
		return nil, nil
	}

	var deliveries []entity.Delivery
	err := d.db.WithContext(ctx).
		Where("po_id = ?", poID).
		Where("expected_delivery_date BETWEEN ? AND ?", deliveryDate.AddDate(0, 0, -7), deliveryDate.AddDate(0, 0, 7)).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}

	var candidates []DuplicateCandidate
	for _, del := range deliveries {
		candidates = append(candidates, DuplicateCandidate{
			ID:         del.ID,
			MatchType:  "Similar Delivery",
			Confidence: 0.85,
			Reason:     "Similar delivery for same PO on " + dateString(del.ExpectedDeliveryDate),
			Fields: map[string]interface{}{
				"po_id":  del.POID,
				"status": del.DeliveryStatus,
			},
		})
	}
	return candidates, nil
}

func containsID(cs []DuplicateCandidate, id uint) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

func dateString(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format("2006-01-02")
}

