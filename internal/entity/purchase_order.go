package entity

import "time"

// PurchaseOrder tracks one PO issued to a supplier against a material
// submittal. PORef is the external reference and must be unique.
type PurchaseOrder struct {
	ID         uint `json:"id" gorm:"primaryKey;autoIncrement"`
	MaterialID uint `json:"material_id" gorm:"not null;index"`

	QuoteRef             string     `json:"quote_ref" gorm:"size:100"`
	PORef                string     `json:"po_ref" gorm:"size:100;uniqueIndex;not null"`
	PODate               *time.Time `json:"po_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`

	SupplierName    string `json:"supplier_name" gorm:"size:200;not null"`
	SupplierContact string `json:"supplier_contact" gorm:"size:200"`
	SupplierEmail   string `json:"supplier_email" gorm:"size:200"`

	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(15,2);not null"`
	Currency    string  `json:"currency" gorm:"size:10;default:AED"`

	POStatus string `json:"po_status" gorm:"size:50;default:Not Released"`

	PaymentTerms  string `json:"payment_terms" gorm:"type:text"`
	DeliveryTerms string `json:"delivery_terms" gorm:"type:text"`
	Notes         string `json:"notes" gorm:"type:text"`

	DocumentPath string `json:"document_path" gorm:"size:500"`

	ExtractionStatus     string  `json:"extraction_status" gorm:"size:20;default:pending"`
	ExtractionConfidence float64 `json:"extraction_confidence" gorm:"default:0"`
	ExtractedData        JSONMap `json:"extracted_data"`
	ExtractionChecksum   string  `json:"-" gorm:"size:64;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by" gorm:"size:100;default:Manual"`
	UpdatedBy string    `json:"updated_by" gorm:"size:100;default:Manual"`

	Material   *Material  `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
	Payments   []Payment  `json:"payments,omitempty" gorm:"foreignKey:POID"`
	Deliveries []Delivery `json:"deliveries,omitempty" gorm:"foreignKey:POID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PO statuses
const (
	POStatusNotReleased = "Not Released"
	POStatusReleased    = "Released"
	POStatusCancelled   = "Cancelled"
)

var POStatuses = []string{POStatusNotReleased, POStatusReleased, POStatusCancelled}

func IsValidPOStatus(s string) bool {
	for _, v := range POStatuses {
		if v == s {
			return true
		}
	}
	return false
}
