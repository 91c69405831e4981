package entity

import "time"

// Payment records money paid (or committed) against a PO. TotalAmount is the
// invoiced value of this payment, PaidAmount how much has been settled.
type Payment struct {
	ID   uint `json:"id" gorm:"primaryKey;autoIncrement"`
	POID uint `json:"po_id" gorm:"column:po_id;not null;index"`

	PaymentStructure string `json:"payment_structure" gorm:"size:50;default:Single Payment"`
	PaymentType      string `json:"payment_type" gorm:"size:50"` // Advance/Balance/Full/Partial

	TotalAmount       float64    `json:"total_amount" gorm:"type:decimal(15,2);not null"`
	PaidAmount        float64    `json:"paid_amount" gorm:"type:decimal(15,2);default:0"`
	PaymentPercentage float64    `json:"payment_percentage" gorm:"default:0"`
	PaymentDate       *time.Time `json:"payment_date"`

	PaymentTerms string `json:"payment_terms" gorm:"type:text"`

	PaymentRef    string `json:"payment_ref" gorm:"size:100"`
	InvoiceRef    string `json:"invoice_ref" gorm:"size:100"`
	PaymentMethod string `json:"payment_method" gorm:"size:100"`
	Currency      string `json:"currency" gorm:"size:10;default:AED"`

	PaymentStatus string `json:"payment_status" gorm:"size:50;default:Pending"`

	Notes string `json:"notes" gorm:"type:text"`

	InvoicePath string `json:"invoice_path" gorm:"size:500"`
	ReceiptPath string `json:"receipt_path" gorm:"size:500"`

	ExtractionStatus     string  `json:"extraction_status" gorm:"size:20;default:pending"`
	ExtractionConfidence float64 `json:"extraction_confidence" gorm:"default:0"`
	ExtractedData        JSONMap `json:"extracted_data"`
	ExtractionChecksum   string  `json:"-" gorm:"size:64;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by" gorm:"size:100;default:Manual"`
	UpdatedBy string    `json:"updated_by" gorm:"size:100;default:Manual"`

	PurchaseOrder *PurchaseOrder `json:"purchase_order,omitempty" gorm:"foreignKey:POID"`
}

func (Payment) TableName() string {
	return "payments"
}

// CalculatePercentage refreshes PaymentPercentage from the paid/total ratio.
func (p *Payment) CalculatePercentage() {
	if p.TotalAmount > 0 {
		p.PaymentPercentage = p.PaidAmount / p.TotalAmount * 100
	} else {
		p.PaymentPercentage = 0
	}
}

// Payment structures and statuses
const (
	PaymentStructureSingle  = "Single Payment"
	PaymentStructureAdvance = "Advance + Balance"

	PaymentStatusPending   = "Pending"
	PaymentStatusCompleted = "Completed"
	PaymentStatusFull      = "Full"
	PaymentStatusPartial   = "Partial"
)

var PaymentStructures = []string{PaymentStructureSingle, PaymentStructureAdvance}

func IsValidPaymentStructure(s string) bool {
	for _, v := range PaymentStructures {
		if v == s {
			return true
		}
	}
	return false
}
