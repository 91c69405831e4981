package service

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func buildQuoteWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return &buf
}

func TestAnalyzeQuoteWorkbook(t *testing.T) {
	buf := buildQuoteWorkbook(t, [][]interface{}{
		{"Gulf Electrical Trading LLC"},
		{"Quotation Ref: GET-2025-118"},
		{"Description", "Unit", "Qty", "Unit Price"},
		{"PVC Conduit 25mm", "Mtr", 500, 4.5},
		{"Cable Tray 200mm", "Mtr", 120, 85},
		{},
		{"Light Fitting LED 40W", "Nos", 250, 50.4},
	})

	svc := NewQuoteService(zap.NewNop())
	analysis, err := svc.Analyze(buf)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if analysis.HeaderRow != 3 {
		t.Errorf("header row = %d, want 3", analysis.HeaderRow)
	}
	wantCols := []string{"DESCRIPTION", "UNIT", "QTY", "RATE"}
	if len(analysis.Columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", analysis.Columns, wantCols)
	}
	for i, c := range wantCols {
		if analysis.Columns[i] != c {
			t.Errorf("column %d = %q, want %q", i, analysis.Columns[i], c)
		}
	}

	if len(analysis.Items) != 3 {
		t.Fatalf("expected 3 items (blank row skipped), got %d", len(analysis.Items))
	}
	if analysis.Items[0]["DESCRIPTION"] != "PVC Conduit 25mm" {
		t.Errorf("item 1 description = %v", analysis.Items[0]["DESCRIPTION"])
	}
	if analysis.Items[2]["QTY"] != "250" {
		t.Errorf("item 3 qty = %v, want \"250\"", analysis.Items[2]["QTY"])
	}
}

func TestAnalyzeQuoteUnmappedHeaders(t *testing.T) {
	buf := buildQuoteWorkbook(t, [][]interface{}{
		{"Description", "Qty", "Rate", "Remarks"},
		{"Earth Rod 16mm", 40, 65, "ex-stock"},
	})

	svc := NewQuoteService(zap.NewNop())
	analysis, err := svc.Analyze(buf)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if len(analysis.UnmappedHeaders) != 1 || analysis.UnmappedHeaders[0] != "Remarks" {
		t.Errorf("unmapped = %v, want [Remarks]", analysis.UnmappedHeaders)
	}
	if _, ok := analysis.Items[0]["Remarks"]; ok {
		t.Error("unmapped column leaked into items")
	}

	req := analysis.ToCreateRequest()
	if req.ExtractionMethod != "template" {
		t.Errorf("extraction method = %q, want template", req.ExtractionMethod)
	}
	if len(req.Items) != 1 {
		t.Errorf("request items = %d, want 1", len(req.Items))
	}
}

func TestAnalyzeQuoteNoHeader(t *testing.T) {
	buf := buildQuoteWorkbook(t, [][]interface{}{
		{"Company Letterhead"},
		{"Some free text"},
	})

	svc := NewQuoteService(zap.NewNop())
	if _, err := svc.Analyze(buf); err == nil {
		t.Fatal("expected error when no header row is present")
	}
}
