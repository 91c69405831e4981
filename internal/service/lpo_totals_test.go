package service

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestComputeTotalsQuoteScenario(t *testing.T) {
	items := []map[string]interface{}{
		{"DESCRIPTION": "PVC Conduit 25mm", "UNIT": "Mtr", "QTY": 500, "RATE": 4.5},
		{"DESCRIPTION": "Cable Tray 200mm", "UNIT": "Mtr", "QTY": 120, "RATE": 85},
		{"DESCRIPTION": "Light Fitting LED 40W", "UNIT": "Nos", "QTY": 250, "RATE": 50.4},
	}

	rows, subtotal, vat, grand := ComputeTotals(items, 5)

	if !almostEqual(subtotal, 25050) {
		t.Errorf("subtotal = %v, want 25050", subtotal)
	}
	if !almostEqual(vat, 1252.50) {
		t.Errorf("vat = %v, want 1252.50", vat)
	}
	if !almostEqual(grand, 26302.50) {
		t.Errorf("grand = %v, want 26302.50", grand)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["number"] != 1 || rows[2]["number"] != 3 {
		t.Errorf("rows not numbered sequentially: %v, %v", rows[0]["number"], rows[2]["number"])
	}
	if total, _ := rows[0]["total_amount"].(float64); !almostEqual(total, 2250) {
		t.Errorf("row 1 total_amount = %v, want 2250", rows[0]["total_amount"])
	}
	if total, _ := rows[1]["total_amount"].(float64); !almostEqual(total, 10200) {
		t.Errorf("row 2 total_amount = %v, want 10200", rows[1]["total_amount"])
	}
}

func TestComputeTotalsSingleRounding(t *testing.T) {
	// Three lines of 33.335 each. Per-line rounding would give
	// 33.34*3 = 100.02; the subtotal must round once, to 100.01.
	items := []map[string]interface{}{
		{"QTY": 1, "RATE": 33.335},
		{"QTY": 1, "RATE": 33.335},
		{"QTY": 1, "RATE": 33.335},
	}

	_, subtotal, _, _ := ComputeTotals(items, 5)
	if !almostEqual(subtotal, 100.01) {
		t.Errorf("subtotal = %v, want 100.01 (rounded once at aggregate)", subtotal)
	}
}

func TestComputeTotalsStringQuantities(t *testing.T) {
	// Extracted quotes often carry numbers as strings.
	items := []map[string]interface{}{
		{"QTY": "10", "RATE": "2.5"},
	}
	_, subtotal, vat, grand := ComputeTotals(items, 5)
	if !almostEqual(subtotal, 25) || !almostEqual(vat, 1.25) || !almostEqual(grand, 26.25) {
		t.Errorf("got %v/%v/%v, want 25/1.25/26.25", subtotal, vat, grand)
	}
}

func TestComputeTotalsZeroVAT(t *testing.T) {
	items := []map[string]interface{}{{"QTY": 2, "RATE": 100}}
	_, subtotal, vat, grand := ComputeTotals(items, 0)
	if !almostEqual(subtotal, 200) || !almostEqual(vat, 0) || !almostEqual(grand, 200) {
		t.Errorf("got %v/%v/%v, want 200/0/200", subtotal, vat, grand)
	}
}

func TestNormalizeColumns(t *testing.T) {
	cols, err := normalizeColumns([]string{"make", " Description ", "qty", "RATE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"MAKE", "DESCRIPTION", "QTY", "RATE"}
	for i, c := range want {
		if cols[i] != c {
			t.Errorf("column %d = %q, want %q", i, cols[i], c)
		}
	}

	if _, err := normalizeColumns([]string{"DESCRIPTION", "COLOUR"}); err == nil {
		t.Error("expected error for unknown column COLOUR")
	}
	if _, err := normalizeColumns(nil); err == nil {
		t.Error("expected error for empty column list")
	}
}

func TestValidateItems(t *testing.T) {
	cols := []string{"DESCRIPTION", "QTY", "RATE"}

	ok := []map[string]interface{}{
		{"DESCRIPTION": "Cable", "QTY": 1, "RATE": 10, "total_amount": 10, "number": 1},
	}
	if err := validateItems(ok, cols); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := []map[string]interface{}{
		{"DESCRIPTION": "Cable", "WEIGHT": 5},
	}
	if err := validateItems(bad, cols); err == nil {
		t.Error("expected error for key outside chosen columns")
	}

	if err := validateItems(nil, cols); err == nil {
		t.Error("expected error for empty items")
	}
}
