package entity

import "time"

// AISuggestion holds extracted data that did not clear the auto-apply bar and
// is waiting for a human decision. Approving one writes SuggestedData into the
// target table; TargetID is nil for creates.
type AISuggestion struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	TargetTable string `json:"target_table" gorm:"size:50;not null;index"`
	TargetID    *uint  `json:"target_id"`
	ActionType  string `json:"action_type" gorm:"size:20;not null"` // create/update

	AIModel            string  `json:"ai_model" gorm:"size:50"`
	ConfidenceScore    float64 `json:"confidence_score" gorm:"not null"` // 0-100
	ExtractionSource   string  `json:"extraction_source" gorm:"size:200"`
	SourceDocumentPath string  `json:"source_document_path" gorm:"size:500"`

	SuggestedData JSONMap `json:"suggested_data" gorm:"not null"`
	CurrentData   JSONMap `json:"current_data"`

	AIReasoning   string     `json:"ai_reasoning" gorm:"type:text"`
	MissingFields StringList `json:"missing_fields"`

	Status string `json:"status" gorm:"size:20;default:pending;index"`

	ReviewedBy  string     `json:"reviewed_by" gorm:"size:100"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	ReviewNotes string     `json:"review_notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (AISuggestion) TableName() string {
	return "ai_suggestions"
}

// Suggestion statuses and actions
const (
	SuggestionPending     = "pending"
	SuggestionApproved    = "approved"
	SuggestionRejected    = "rejected"
	SuggestionAutoApplied = "auto_applied"

	ActionCreate = "create"
	ActionUpdate = "update"
)

// Target tables a suggestion may write to.
const (
	TargetMaterials      = "materials"
	TargetPurchaseOrders = "purchase_orders"
	TargetPayments       = "payments"
	TargetDeliveries     = "deliveries"
)

var SuggestionTargets = []string{TargetMaterials, TargetPurchaseOrders, TargetPayments, TargetDeliveries}

func IsValidSuggestionTarget(s string) bool {
	for _, v := range SuggestionTargets {
		if v == s {
			return true
		}
	}
	return false
}

// ConfidenceLevel buckets the score for display: high >= 90, medium >= 60.
func (s *AISuggestion) ConfidenceLevel() string {
	switch {
	case s.ConfidenceScore >= 90:
		return "high"
	case s.ConfidenceScore >= 60:
		return "medium"
	default:
		return "low"
	}
}
