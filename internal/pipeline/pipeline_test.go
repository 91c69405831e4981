package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
)

func TestChecksumStableAcrossKeyOrder(t *testing.T) {
	a := &ExtractionMessage{
		Confidence: 92.5,
		Extracted: map[string]interface{}{
			"supplier_name": "Emirates Steel",
			"total_amount":  50000.0,
			"po_date":       "2025-06-01",
		},
	}
	b := &ExtractionMessage{
		Confidence: 92.5,
		Extracted: map[string]interface{}{
			"po_date":       "2025-06-01",
			"total_amount":  50000.0,
			"supplier_name": "Emirates Steel",
		},
	}
	if a.Checksum() != b.Checksum() {
		t.Fatalf("checksum differs for same bag in different key order")
	}
}

func TestChecksumChangesWithContent(t *testing.T) {
	base := &ExtractionMessage{
		Confidence: 92.5,
		Extracted:  map[string]interface{}{"total_amount": 50000.0},
	}
	amount := &ExtractionMessage{
		Confidence: 92.5,
		Extracted:  map[string]interface{}{"total_amount": 50001.0},
	}
	conf := &ExtractionMessage{
		Confidence: 92.6,
		Extracted:  map[string]interface{}{"total_amount": 50000.0},
	}
	if base.Checksum() == amount.Checksum() {
		t.Fatalf("different amounts hashed to same checksum")
	}
	if base.Checksum() == conf.Checksum() {
		t.Fatalf("different confidence hashed to same checksum")
	}
}

func TestChecksumNilBag(t *testing.T) {
	a := &ExtractionMessage{Confidence: 0}
	b := &ExtractionMessage{Confidence: 0, Extracted: map[string]interface{}{}}
	if a.Checksum() != b.Checksum() {
		t.Fatalf("nil bag and empty bag should hash alike")
	}
	if len(a.Checksum()) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a.Checksum()))
	}
}

func TestApplyDeliveryFieldsCoercion(t *testing.T) {
	var d entity.Delivery
	applied := applyDeliveryFields(&d, map[string]interface{}{
		"delivery_date":      "2025-06-10",
		"status":             "Partial Delivery",
		"delivered_quantity": "75.5",
		"ordered_quantity":   100,
		"carrier":            "Aramex",
		"unrecognized_key":   "ignored",
	})

	if d.ActualDeliveryDate == nil || !d.ActualDeliveryDate.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("delivery date not coerced: %v", d.ActualDeliveryDate)
	}
	if d.DeliveryStatus != entity.DeliveryStatusPartial {
		t.Fatalf("status = %q", d.DeliveryStatus)
	}
	if d.DeliveredQuantity != 75.5 {
		t.Fatalf("delivered quantity = %v", d.DeliveredQuantity)
	}
	if d.OrderedQuantity != 100 {
		t.Fatalf("ordered quantity = %v", d.OrderedQuantity)
	}
	if d.Carrier != "Aramex" {
		t.Fatalf("carrier = %q", d.Carrier)
	}
	for _, name := range applied {
		if name == "unrecognized_key" {
			t.Fatalf("unknown key reported as applied")
		}
	}
}

func TestApplyDeliveryFieldsRejectsBadValues(t *testing.T) {
	var d entity.Delivery
	applied := applyDeliveryFields(&d, map[string]interface{}{
		"delivery_date":       "06/10/2025",
		"status":              "Teleported",
		"delivery_percentage": 250,
	})
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied, got %v", applied)
	}
	if d.ActualDeliveryDate != nil || d.DeliveryStatus != "" || d.DeliveryPercentage != 0 {
		t.Fatalf("bad values leaked onto delivery: %+v", d)
	}
}

func TestApplyPOFieldsAliases(t *testing.T) {
	var po entity.PurchaseOrder
	applyPOFields(&po, map[string]interface{}{
		"release_date":  "2025-05-20",
		"amount":        "125000",
		"supplier_name": "Dubai Cable Company",
	})
	if po.PODate == nil {
		t.Fatalf("release_date alias not mapped onto po_date")
	}
	if po.TotalAmount != 125000 {
		t.Fatalf("amount alias not mapped, total = %v", po.TotalAmount)
	}
	if po.SupplierName != "Dubai Cable Company" {
		t.Fatalf("supplier = %q", po.SupplierName)
	}
}

func TestApplyPaymentFieldsIgnoresNonPositiveAmount(t *testing.T) {
	p := entity.Payment{TotalAmount: 9000}
	applyPaymentFields(&p, map[string]interface{}{
		"total_amount": -5,
		"invoice_ref":  "INV-2025-100",
	})
	if p.TotalAmount != 9000 {
		t.Fatalf("negative amount overwrote total: %v", p.TotalAmount)
	}
	if p.InvoiceRef != "INV-2025-100" {
		t.Fatalf("invoice ref = %q", p.InvoiceRef)
	}
}

func TestApplyPaymentFieldsLeavesAbsentAmountsAlone(t *testing.T) {
	p := entity.Payment{TotalAmount: 50000, PaidAmount: 40000}
	applied := applyPaymentFields(&p, map[string]interface{}{
		"invoice_ref": "INV-2025-010",
	})
	if p.PaidAmount != 40000 {
		t.Fatalf("paid amount overwritten to %v by a bag that never mentioned it", p.PaidAmount)
	}
	if p.TotalAmount != 50000 {
		t.Fatalf("total amount overwritten to %v", p.TotalAmount)
	}
	if len(applied) != 1 || applied[0] != "invoice_ref" {
		t.Fatalf("applied = %v, want [invoice_ref]", applied)
	}
}

func TestApplyDeliveryFieldsLeavesAbsentQuantitiesAlone(t *testing.T) {
	d := entity.Delivery{
		OrderedQuantity:    500,
		DeliveredQuantity:  250,
		DeliveryPercentage: 50,
	}
	applyDeliveryFields(&d, map[string]interface{}{
		"carrier": "Aramex",
	})
	if d.OrderedQuantity != 500 || d.DeliveredQuantity != 250 || d.DeliveryPercentage != 50 {
		t.Fatalf("quantities wiped: ordered=%v delivered=%v pct=%v",
			d.OrderedQuantity, d.DeliveredQuantity, d.DeliveryPercentage)
	}
}

func TestProjectFieldsFiltersUnknownKeys(t *testing.T) {
	projected := projectFields(TargetPayment, map[string]interface{}{
		"payment_date":  "2025-06-01",
		"total_amount":  26302.50,
		"random_noise":  true,
		"supplier_name": "not a payment field",
	})
	if len(projected) != 2 {
		t.Fatalf("projected = %v", projected)
	}
	if _, ok := projected["payment_date"]; !ok {
		t.Fatalf("payment_date dropped")
	}
	if _, ok := projected["random_noise"]; ok {
		t.Fatalf("unknown key survived projection")
	}
}

func TestReviewReasoningBelowReviewThreshold(t *testing.T) {
	p := New(nil, nil, nil, nil, nil, 90, 60)
	projected := map[string]interface{}{"total_amount": 100.0}

	mid := p.reviewReasoning(75, projected)
	if !strings.Contains(mid, "auto-apply threshold 90") {
		t.Fatalf("mid-band reasoning = %q", mid)
	}

	low := p.reviewReasoning(40, projected)
	if !strings.Contains(low, "review threshold 60") || !strings.Contains(low, "unreliable") {
		t.Fatalf("low-band reasoning = %q", low)
	}
}

func TestMissingFromSorted(t *testing.T) {
	missing := missingFrom(TargetPayment, map[string]interface{}{"total_amount": 100.0})
	if len(missing) == 0 {
		t.Fatalf("expected missing mandatory fields")
	}
	for i := 1; i < len(missing); i++ {
		if missing[i-1] > missing[i] {
			t.Fatalf("missing fields not sorted: %v", missing)
		}
	}
	found := false
	for _, f := range missing {
		if f == "payment_date" {
			found = true
		}
	}
	if !found {
		t.Fatalf("payment_date should be reported missing: %v", missing)
	}
}
