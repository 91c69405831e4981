package service

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
)

// PDFPayload is the document handed to the external renderer. Dates are
// already formatted and the grand total is spelled out; the renderer does
// layout only.
type PDFPayload struct {
	LPONumber string `json:"lpo_number"`
	Revision  string `json:"revision"`
	Status    string `json:"status"`

	LPODate       string `json:"lpo_date"`
	QuotationDate string `json:"quotation_date,omitempty"`
	DeliveryDate  string `json:"delivery_date,omitempty"`

	ProjectName     string `json:"project_name"`
	ProjectLocation string `json:"project_location,omitempty"`
	Consultant      string `json:"consultant,omitempty"`

	SupplierName    string `json:"supplier_name"`
	SupplierAddress string `json:"supplier_address,omitempty"`
	SupplierTRN     string `json:"supplier_trn,omitempty"`
	SupplierTel     string `json:"supplier_tel,omitempty"`
	SupplierFax     string `json:"supplier_fax,omitempty"`
	ContactPerson   string `json:"contact_person,omitempty"`
	ContactNumber   string `json:"contact_number,omitempty"`

	QuotationRef string `json:"quotation_ref,omitempty"`

	Columns []string                 `json:"columns"`
	Items   []map[string]interface{} `json:"items"`

	Subtotal          float64 `json:"subtotal"`
	VATPercentage     float64 `json:"vat_percentage"`
	VATAmount         float64 `json:"vat_amount"`
	GrandTotal        float64 `json:"grand_total"`
	GrandTotalInWords string  `json:"grand_total_in_words"`

	PaymentTerms  string `json:"payment_terms,omitempty"`
	DeliveryTerms string `json:"delivery_terms,omitempty"`
	WarrantyTerms string `json:"warranty_terms,omitempty"`
	OtherTerms    string `json:"other_terms,omitempty"`
	Notes         string `json:"notes,omitempty"`

	FileName    string `json:"file_name"`
	StoragePath string `json:"storage_path"`
}

// BuildPDFPayload flattens an LPO into the renderer contract. Internal notes
// never leave the system.
func BuildPDFPayload(l *entity.LPO) *PDFPayload {
	return &PDFPayload{
		LPONumber:         l.LPONumber,
		Revision:          l.Revision,
		Status:            l.Status,
		LPODate:           l.LPODate.Format("02/01/2006"),
		QuotationDate:     formatOptionalDate(l.QuotationDate),
		DeliveryDate:      formatOptionalDate(l.DeliveryDate),
		ProjectName:       l.ProjectName,
		ProjectLocation:   l.ProjectLocation,
		Consultant:        l.Consultant,
		SupplierName:      l.SupplierName,
		SupplierAddress:   l.SupplierAddress,
		SupplierTRN:       l.SupplierTRN,
		SupplierTel:       l.SupplierTel,
		SupplierFax:       l.SupplierFax,
		ContactPerson:     l.ContactPerson,
		ContactNumber:     l.ContactNumber,
		QuotationRef:      l.QuotationRef,
		Columns:           l.ColumnStructure,
		Items:             l.Items,
		Subtotal:          l.Subtotal,
		VATPercentage:     l.VATPercentage,
		VATAmount:         l.VATAmount,
		GrandTotal:        l.GrandTotal,
		GrandTotalInWords: AmountInWords(l.GrandTotal),
		PaymentTerms:      l.PaymentTerms,
		DeliveryTerms:     l.DeliveryTerms,
		WarrantyTerms:     l.WarrantyTerms,
		OtherTerms:        l.OtherTerms,
		Notes:             l.Notes,
		FileName:          PDFFileName(l),
		StoragePath:       PDFStoragePath(l, time.Now()),
	}
}

// PDFFileName is LPO_<number with slashes replaced>_rev<REV>.pdf, so
// LPO/PKP/2025/0001 rev 00 becomes LPO_PKP_2025_0001_rev00.pdf.
func PDFFileName(l *entity.LPO) string {
	safe := strings.ReplaceAll(l.LPONumber, "/", "_")
	return fmt.Sprintf("%s_rev%s.pdf", safe, l.Revision)
}

// PDFStoragePath shards generated documents by year and month.
func PDFStoragePath(l *entity.LPO, now time.Time) string {
	return path.Join("lpo_pdfs", now.Format("2006"), now.Format("01"), PDFFileName(l))
}
