package entity

import "time"

// LPO is a local purchase order generated in-house from a supplier quote.
// Numbering is LPO/PKP/YYYY/NNNN with NNNN restarting each year.
type LPO struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	LPONumber string `json:"lpo_number" gorm:"size:50;uniqueIndex;not null"`
	Revision  string `json:"revision" gorm:"size:10;default:00"`
	Status    string `json:"status" gorm:"size:20;default:draft;index"`

	LPODate       time.Time  `json:"lpo_date" gorm:"not null"`
	QuotationDate *time.Time `json:"quotation_date"`
	DeliveryDate  *time.Time `json:"delivery_date"`

	ProjectName     string `json:"project_name" gorm:"size:200;not null"`
	ProjectLocation string `json:"project_location" gorm:"size:200"`
	Consultant      string `json:"consultant" gorm:"size:200"`

	SupplierName    string `json:"supplier_name" gorm:"size:200;not null;index"`
	SupplierAddress string `json:"supplier_address" gorm:"type:text"`
	SupplierTRN     string `json:"supplier_trn" gorm:"size:50"`
	SupplierTel     string `json:"supplier_tel" gorm:"size:50"`
	SupplierFax     string `json:"supplier_fax" gorm:"size:50"`
	ContactPerson   string `json:"contact_person" gorm:"size:100"`
	ContactNumber   string `json:"contact_number" gorm:"size:50"`

	QuotationRef     string `json:"quotation_ref" gorm:"size:100"`
	QuotationPDFPath string `json:"quotation_pdf_path" gorm:"size:500"`

	// Column layout follows whatever the supplier quote carried; only
	// columns from the allowed superset are accepted.
	ColumnStructure StringList `json:"column_structure" gorm:"not null"`
	Items           JSONList   `json:"items" gorm:"not null"`

	Subtotal      float64 `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	VATPercentage float64 `json:"vat_percentage" gorm:"type:decimal(5,2);default:5"`
	VATAmount     float64 `json:"vat_amount" gorm:"type:decimal(12,2);not null;default:0"`
	GrandTotal    float64 `json:"grand_total" gorm:"type:decimal(12,2);not null;default:0"`

	PaymentTerms  string `json:"payment_terms" gorm:"type:text"`
	DeliveryTerms string `json:"delivery_terms" gorm:"type:text"`
	WarrantyTerms string `json:"warranty_terms" gorm:"type:text"`
	OtherTerms    string `json:"other_terms" gorm:"type:text"`

	Notes         string `json:"notes" gorm:"type:text"`
	InternalNotes string `json:"-" gorm:"type:text"` // never rendered on the PDF

	PurchaseOrderID *uint `json:"purchase_order_id"`

	CreatedBy  string     `json:"created_by" gorm:"size:100"`
	ApprovedBy string     `json:"approved_by" gorm:"size:100"`
	ApprovedAt *time.Time `json:"approved_at"`

	ExtractionMethod     string  `json:"extraction_method" gorm:"size:50"` // manual/ai_extracted/template
	ExtractionConfidence float64 `json:"extraction_confidence" gorm:"type:decimal(5,2)"`
	ExtractionNotes      string  `json:"extraction_notes" gorm:"type:text"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	IssuedAt  *time.Time `json:"issued_at"`

	History []LPOHistory `json:"history,omitempty" gorm:"foreignKey:LPOID"`
}

func (LPO) TableName() string {
	return "lpos"
}

// LPO statuses
const (
	LPODraft        = "draft"
	LPOIssued       = "issued"
	LPOAcknowledged = "acknowledged"
	LPOCompleted    = "completed"
	LPOCancelled    = "cancelled"
)

// LPOColumns is the superset of item columns an LPO layout may use.
var LPOColumns = []string{"MAKE", "BRAND", "MODEL", "CODE", "DESCRIPTION", "UNIT", "QTY", "RATE"}

func IsValidLPOColumn(c string) bool {
	for _, v := range LPOColumns {
		if v == c {
			return true
		}
	}
	return false
}

func (l *LPO) ItemCount() int {
	return len(l.Items)
}

// IsEditable reports whether field changes are still allowed.
func (l *LPO) IsEditable() bool {
	return l.Status == LPODraft
}

// CanBeIssued requires a draft with at least one line item.
func (l *LPO) CanBeIssued() bool {
	return l.Status == LPODraft && l.ItemCount() > 0
}

// LPOHistory is the append-only audit trail of LPO lifecycle changes.
type LPOHistory struct {
	ID    uint `json:"id" gorm:"primaryKey;autoIncrement"`
	LPOID uint `json:"lpo_id" gorm:"not null;index"`

	Action    string `json:"action" gorm:"size:50;not null"` // created/updated/issued/cancelled/revised
	OldStatus string `json:"old_status" gorm:"size:20"`
	NewStatus string `json:"new_status" gorm:"size:20"`

	Changes JSONMap `json:"changes"`
	Notes   string  `json:"notes" gorm:"type:text"`

	PerformedBy string    `json:"performed_by" gorm:"size:100"`
	PerformedAt time.Time `json:"performed_at"`
}

func (LPOHistory) TableName() string {
	return "lpo_history"
}
