package service

import (
	"testing"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
)

func TestBuildPDFPayload(t *testing.T) {
	lpoDate := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	deliveryDate := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	l := &entity.LPO{
		LPONumber:       "LPO/PKP/2025/0001",
		Revision:        "00",
		Status:          entity.LPOIssued,
		LPODate:         lpoDate,
		DeliveryDate:    &deliveryDate,
		ProjectName:     "Marina Tower Package 2",
		SupplierName:    "Gulf Electrical Trading LLC",
		ColumnStructure: entity.StringList{"DESCRIPTION", "QTY", "RATE"},
		Items: entity.JSONList{
			{"DESCRIPTION": "PVC Conduit 25mm", "QTY": 500, "RATE": 4.5},
		},
		Subtotal:      25050,
		VATPercentage: 5,
		VATAmount:     1252.50,
		GrandTotal:    26302.50,
		Notes:         "Deliver to site store",
		InternalNotes: "margin is thin on this one",
	}

	p := BuildPDFPayload(l)

	if p.LPODate != "03/06/2025" {
		t.Errorf("lpo date = %q, want 03/06/2025", p.LPODate)
	}
	if p.QuotationDate != "" {
		t.Errorf("quotation date = %q, want empty", p.QuotationDate)
	}
	if p.DeliveryDate != "15/07/2025" {
		t.Errorf("delivery date = %q, want 15/07/2025", p.DeliveryDate)
	}
	if p.GrandTotalInWords != "Twenty Six Thousand Three Hundred Two Dirhams and Fifty Fils Only" {
		t.Errorf("grand total in words = %q", p.GrandTotalInWords)
	}
	if p.FileName != "LPO_PKP_2025_0001_rev00.pdf" {
		t.Errorf("file name = %q", p.FileName)
	}
}

func TestPDFStoragePath(t *testing.T) {
	l := &entity.LPO{LPONumber: "LPO/PKP/2025/0001", Revision: "01"}
	at := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

	got := PDFStoragePath(l, at)
	want := "lpo_pdfs/2025/11/LPO_PKP_2025_0001_rev01.pdf"
	if got != want {
		t.Errorf("storage path = %q, want %q", got, want)
	}
}
