package entity

import "time"

// Delivery tracks one delivery (full or partial) against a PO.
type Delivery struct {
	ID   uint `json:"id" gorm:"primaryKey;autoIncrement"`
	POID uint `json:"po_id" gorm:"column:po_id;not null;index"`

	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date"`
	DeliveryStatus       string     `json:"delivery_status" gorm:"size:50;default:Pending"`

	OrderedQuantity   float64 `json:"ordered_quantity"`
	DeliveredQuantity float64 `json:"delivered_quantity" gorm:"default:0"`
	Unit              string  `json:"unit" gorm:"size:50"`

	// Item-level fraction delivered, 0-100. Kept separate from quantities
	// because partial deliveries are often reported per line item.
	DeliveryPercentage float64 `json:"delivery_percentage" gorm:"default:0"`

	TrackingNumber string `json:"tracking_number" gorm:"size:100"`
	Carrier        string `json:"carrier" gorm:"size:200"`

	DeliveryLocation string `json:"delivery_location" gorm:"size:500"`
	ReceivedBy       string `json:"received_by" gorm:"size:100"`

	IsDelayed   bool   `json:"is_delayed" gorm:"default:false"`
	DelayReason string `json:"delay_reason" gorm:"type:text"`
	DelayDays   int    `json:"delay_days" gorm:"default:0"`

	Notes string `json:"notes" gorm:"type:text"`

	DeliveryNotePath string `json:"delivery_note_path" gorm:"size:500"`

	// Extraction audit, set when a delivery note was read by the
	// document pipeline rather than keyed in by hand.
	ExtractionStatus     string     `json:"extraction_status" gorm:"size:20;default:pending"`
	ExtractionDate       *time.Time `json:"extraction_date"`
	ExtractionConfidence float64    `json:"extraction_confidence" gorm:"default:0"`
	ExtractedItemCount   int        `json:"extracted_item_count" gorm:"default:0"`
	ExtractedData        JSONMap    `json:"extracted_data"`
	ExtractionChecksum   string     `json:"-" gorm:"size:64;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by" gorm:"size:100;default:Manual"`
	UpdatedBy string    `json:"updated_by" gorm:"size:100;default:Manual"`

	PurchaseOrder *PurchaseOrder `json:"purchase_order,omitempty" gorm:"foreignKey:POID"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

// Delivery statuses
const (
	DeliveryStatusPending   = "Pending"
	DeliveryStatusInTransit = "In Transit"
	DeliveryStatusPartial   = "Partial Delivery"
	DeliveryStatusCompleted = "Completed"
	DeliveryStatusDelayed   = "Delayed"
)

// Extraction states shared by the pipeline targets.
const (
	ExtractionPending     = "pending"
	ExtractionProcessing  = "processing"
	ExtractionCompleted   = "completed"
	ExtractionNeedsReview = "needs_review"
	ExtractionFailed      = "failed"
)

var DeliveryStatuses = []string{
	DeliveryStatusPending,
	DeliveryStatusInTransit,
	DeliveryStatusPartial,
	DeliveryStatusCompleted,
	DeliveryStatusDelayed,
}

func IsValidDeliveryStatus(s string) bool {
	for _, v := range DeliveryStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CheckDelay marks the delivery delayed when it arrived after the expected
// date, or is overdue and still open. now is injected for testability.
func (d *Delivery) CheckDelay(now time.Time) {
	if d.ExpectedDeliveryDate == nil {
		return
	}
	if d.ActualDeliveryDate != nil {
		if d.ActualDeliveryDate.After(*d.ExpectedDeliveryDate) {
			d.IsDelayed = true
			d.DelayDays = int(d.ActualDeliveryDate.Sub(*d.ExpectedDeliveryDate).Hours() / 24)
			d.DeliveryStatus = DeliveryStatusDelayed
		}
		return
	}
	if now.After(*d.ExpectedDeliveryDate) && d.DeliveryStatus != DeliveryStatusCompleted {
		d.IsDelayed = true
		d.DelayDays = int(now.Sub(*d.ExpectedDeliveryDate).Hours() / 24)
		d.DeliveryStatus = DeliveryStatusDelayed
	}
}
