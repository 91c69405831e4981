package entity

import "time"

// File is an uploaded document (PO, invoice, delivery note, quote) plus the
// state of its extraction run.
type File struct {
	ID               uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Filename         string `json:"filename" gorm:"size:255;not null"`
	OriginalFilename string `json:"original_filename" gorm:"size:255;not null"`
	FilePath         string `json:"file_path" gorm:"size:500;not null"`
	FileType         string `json:"file_type" gorm:"size:50;not null"`
	FileSize         int64  `json:"file_size" gorm:"not null"`
	MimeType         string `json:"mime_type" gorm:"size:100"`

	ProcessingStatus     string  `json:"processing_status" gorm:"size:50;default:uploaded;index"`
	ExtractedData        JSONMap `json:"extracted_data"`
	ExtractionConfidence float64 `json:"extraction_confidence"`
	ErrorMessage         string  `json:"error_message" gorm:"type:text"`

	MaterialID      *uint `json:"material_id"`
	PurchaseOrderID *uint `json:"purchase_order_id"`
	PaymentID       *uint `json:"payment_id"`
	DeliveryID      *uint `json:"delivery_id"`

	UploadedBy  string     `json:"uploaded_by" gorm:"size:100"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

func (File) TableName() string {
	return "files"
}

// File types
const (
	FileTypePurchaseOrder = "purchase_order"
	FileTypeInvoice       = "invoice"
	FileTypeDeliveryNote  = "delivery_note"
	FileTypeQuote         = "quote"
	FileTypeOther         = "other"
)

// Processing statuses
const (
	FileUploaded   = "uploaded"
	FileProcessing = "processing"
	FileCompleted  = "completed"
	FileFailed     = "failed"
)

var FileTypes = []string{FileTypePurchaseOrder, FileTypeInvoice, FileTypeDeliveryNote, FileTypeQuote, FileTypeOther}

func IsValidFileType(s string) bool {
	for _, v := range FileTypes {
		if v == s {
			return true
		}
	}
	return false
}
