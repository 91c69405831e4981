package engine

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestValidator() *Validator {
	// DB-free rules only; the budget check is covered by handler tests.
	return NewValidator(nil, nil)
}

func hasMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateUnknownRecordType(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), "shipment", map[string]interface{}{})
	if res.IsValid {
		t.Fatal("unknown record type must not validate")
	}
	if !hasMessage(res.Errors, "Unknown record type") {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestValidateLPOReleaseMandatoryFields(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordLPORelease, map[string]interface{}{
		"supplier_name": "Gulf Lighting",
	})
	if res.IsValid {
		t.Fatal("missing mandatory fields must fail")
	}
	for _, want := range []string{"Material Id is required", "Lpo Number is required", "Release Date is required", "Amount is required"} {
		if !hasMessage(res.Errors, want) {
			t.Fatalf("expected %q in %v", want, res.Errors)
		}
	}
}

func TestValidateLPOReleaseFormats(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordLPORelease, map[string]interface{}{
		"material_id":    1,
		"supplier_name":  "Gulf Lighting",
		"lpo_number":     "ORDER-99",
		"release_date":   "2025-10-05",
		"amount":         12000,
		"contact_email":  "not-an-email",
		"contact_number": "12",
	})
	if res.IsValid {
		t.Fatalf("bad email must be an error: %v", res.Errors)
	}
	if !hasMessage(res.Errors, "Email 'not-an-email' is not valid") {
		t.Fatalf("expected email error, got %v", res.Errors)
	}
	if !hasMessage(res.Warnings, "doesn't follow standard format") {
		t.Fatalf("expected LPO number warning, got %v", res.Warnings)
	}
	if !hasMessage(res.Warnings, "may not be valid") {
		t.Fatalf("expected phone warning, got %v", res.Warnings)
	}
}

func TestValidateLPOReleaseCrossFieldDates(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordLPORelease, map[string]interface{}{
		"material_id":            1,
		"supplier_name":          "Gulf Lighting",
		"lpo_number":             "LPO-2025-001",
		"release_date":           "2025-10-05",
		"expected_delivery_date": "2025-10-01",
		"amount":                 12000,
	})
	if !hasMessage(res.Errors, "cannot be before LPO release date") {
		t.Fatalf("expected delivery-before-release error, got %v", res.Errors)
	}

	res = v.Validate(context.Background(), RecordLPORelease, map[string]interface{}{
		"material_id":            1,
		"supplier_name":          "Gulf Lighting",
		"lpo_number":             "LPO-2025-001",
		"release_date":           "2025-10-05",
		"expected_delivery_date": "2025-10-05",
		"amount":                 12000,
	})
	if !res.IsValid {
		t.Fatalf("same-day delivery is only a warning: %v", res.Errors)
	}
	if !hasMessage(res.Warnings, "same day as LPO release") {
		t.Fatalf("expected same-day warning, got %v", res.Warnings)
	}
}

func TestValidateAmountRules(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordLPORelease, map[string]interface{}{
		"material_id":   1,
		"supplier_name": "Gulf Lighting",
		"lpo_number":    "LPO-2025-001",
		"release_date":  "2025-10-05",
		"amount":        -50,
	})
	if !hasMessage(res.Errors, "Amount must be a positive number") {
		t.Fatalf("expected positive-amount error, got %v", res.Errors)
	}

	res = v.Validate(context.Background(), RecordLPORelease, map[string]interface{}{
		"material_id":   1,
		"supplier_name": "Gulf Lighting",
		"lpo_number":    "LPO-2025-001",
		"release_date":  "2025-10-05",
		"amount":        12_000_000,
	})
	if !res.IsValid {
		t.Fatalf("huge amount is only a warning: %v", res.Errors)
	}
	if !hasMessage(res.Warnings, "unusually high") {
		t.Fatalf("expected high-amount warning, got %v", res.Warnings)
	}
	if !hasMessage(res.Warnings, "higher than typical range") {
		t.Fatalf("expected anomaly warning, got %v", res.Warnings)
	}
}

func TestValidateInvoiceMandatoryAndFormats(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordInvoice, map[string]interface{}{})
	if !hasMessage(res.Errors, "Payment Date is required") || !hasMessage(res.Errors, "Total Amount is required") {
		t.Fatalf("expected mandatory errors, got %v", res.Errors)
	}

	res = v.Validate(context.Background(), RecordInvoice, map[string]interface{}{
		"payment_date":   "2025-10-06",
		"total_amount":   5000,
		"invoice_number": "IN",
	})
	if !hasMessage(res.Errors, "is too short") {
		t.Fatalf("expected short invoice number error, got %v", res.Errors)
	}
}

func TestValidateInvoiceDueDates(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordInvoice, map[string]interface{}{
		"payment_date": "2025-10-06",
		"total_amount": 5000,
		"invoice_date": "2025-10-06",
		"due_date":     "2025-10-01",
	})
	if !hasMessage(res.Errors, "due date cannot be before invoice date") {
		t.Fatalf("expected due-before-invoice error, got %v", res.Errors)
	}

	res = v.Validate(context.Background(), RecordInvoice, map[string]interface{}{
		"payment_date": "2025-01-06",
		"total_amount": 5000,
		"invoice_date": "2025-01-06",
		"due_date":     "2025-06-06",
	})
	if !hasMessage(res.Warnings, "longer than typical") {
		t.Fatalf("expected long-terms warning, got %v", res.Warnings)
	}
}

func TestValidateSubmittalStatusAndSLA(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordSubmittal, map[string]interface{}{
		"material_type":   "Cables & Wires",
		"approval_status": "Shipped",
	})
	if !hasMessage(res.Errors, "Status 'Shipped' is invalid") {
		t.Fatalf("expected status error, got %v", res.Errors)
	}

	old := time.Now().AddDate(0, 0, -10).Format("2006-01-02")
	res = v.Validate(context.Background(), RecordSubmittal, map[string]interface{}{
		"material_type":   "Cables & Wires",
		"approval_status": "Pending",
		"date_submitted":  old,
	})
	if !res.IsValid {
		t.Fatalf("overdue submittal is only a warning: %v", res.Errors)
	}
	if !hasMessage(res.Warnings, ">7 days threshold") {
		t.Fatalf("expected overdue warning, got %v", res.Warnings)
	}
}

func TestValidateDeliveryPartialPercentage(t *testing.T) {
	v := newTestValidator()
	for _, pct := range []float64{0, 100} {
		res := v.Validate(context.Background(), RecordDelivery, map[string]interface{}{
			"lpo_id":              1,
			"delivery_date":       "2025-10-06",
			"status":              "Partial",
			"delivery_percentage": pct,
		})
		if !res.IsValid {
			t.Fatalf("percentage bounds are a warning, not an error: %v", res.Errors)
		}
		if !hasMessage(res.Warnings, "between 1-99%") {
			t.Fatalf("expected percentage warning at %v, got %v", pct, res.Warnings)
		}
	}

	res := v.Validate(context.Background(), RecordDelivery, map[string]interface{}{
		"lpo_id":              1,
		"delivery_date":       "2025-10-06",
		"status":              "Partial",
		"delivery_percentage": 40,
	})
	if hasMessage(res.Warnings, "between 1-99%") {
		t.Fatalf("in-range percentage must not warn: %v", res.Warnings)
	}
}

func TestValidateDeliveryQuantities(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordDelivery, map[string]interface{}{
		"lpo_id":             1,
		"delivery_date":      "2025-10-06",
		"status":             "Delivered",
		"ordered_quantity":   100,
		"delivered_quantity": 120,
	})
	if !hasMessage(res.Warnings, "exceeds ordered") {
		t.Fatalf("expected over-delivery warning, got %v", res.Warnings)
	}
}

func TestValidateDateParsing(t *testing.T) {
	v := newTestValidator()
	res := v.Validate(context.Background(), RecordDelivery, map[string]interface{}{
		"lpo_id":        1,
		"delivery_date": "06/10/2025",
		"status":        "Pending",
	})
	if !hasMessage(res.Errors, "invalid date format") {
		t.Fatalf("expected date format error, got %v", res.Errors)
	}
}

func TestValidateIsRepeatable(t *testing.T) {
	// Two passes over the same bag give the same outcome.
	v := newTestValidator()
	bag := map[string]interface{}{
		"material_id":   1,
		"supplier_name": "Gulf Lighting",
		"lpo_number":    "LPO-2025-001",
		"release_date":  "2025-10-05",
		"amount":        12000,
	}
	a := v.Validate(context.Background(), RecordLPORelease, bag)
	b := v.Validate(context.Background(), RecordLPORelease, bag)
	if a.IsValid != b.IsValid || len(a.Errors) != len(b.Errors) || len(a.Warnings) != len(b.Warnings) {
		t.Fatalf("validation not repeatable: %+v vs %+v", a, b)
	}
}
