package entity

import "time"

// Material is one submittal line on the material schedule. Revisions are
// chained through PreviousSubmittalID; revision 0 is the first submission.
type Material struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MaterialType string `json:"material_type" gorm:"size:200;not null;index"`
	Description  string `json:"description" gorm:"type:text"`

	ApprovalStatus string     `json:"approval_status" gorm:"size:50;default:Pending"`
	ApprovalDate   *time.Time `json:"approval_date"`
	ApprovalNotes  string     `json:"approval_notes" gorm:"type:text"`

	SubmittalRef     string `json:"submittal_ref" gorm:"size:100"`
	SpecificationRef string `json:"specification_ref" gorm:"size:100"`

	RevisionNumber       int   `json:"revision_number" gorm:"default:0"`
	PreviousSubmittalID  *uint `json:"previous_submittal_id"`

	DocumentPath string `json:"document_path" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by" gorm:"size:100;default:Manual"`
	UpdatedBy string    `json:"updated_by" gorm:"size:100;default:Manual"`
}

func (Material) TableName() string {
	return "materials"
}

// Approval statuses
const (
	ApprovalApproved        = "Approved"
	ApprovalApprovedAsNoted = "Approved as Noted"
	ApprovalPending         = "Pending"
	ApprovalUnderReview     = "Under Review"
	ApprovalReviseResubmit  = "Revise & Resubmit"
)

var ApprovalStatuses = []string{
	ApprovalApproved,
	ApprovalApprovedAsNoted,
	ApprovalPending,
	ApprovalUnderReview,
	ApprovalReviseResubmit,
}

// MaterialTypes is the fixed catalogue of material categories tracked on the
// project schedule.
var MaterialTypes = []string{
	"PVC Conduits & Accessories",
	"Light Fittings (Internal & External)",
	"Light Fittings (Decorative Light fittings)",
	"Cable Gland & Accessories",
	"Earthing & LPS System",
	"GI Conduit & Accessories",
	"Cables & Wires",
	"Wiring Accessories",
	"DB",
	"GRMS",
	"Fire Alarm system",
	"Emergency Lighting system",
	"Structured Cabling System & cctv -low current system",
	"Isolator",
	"VRF System",
	"ERV Unit",
	"GI Duct",
	"Duct Heater",
	"Dampers",
	"Air Outlets",
	"Duct Insulation (Thermal)",
	"Duct Insulation (Thermal)(Alternative)",
	"Duct Insulation (Acoustic)",
	"Sealent. Adhesives,Coating & Vapour Barrier",
	"Flexible Duct",
	"Aluminum Tape",
	"Flexible Duct Connector",
	"Fire Fighting system",
	"Fire Extinguisher",
	"PPR pipe and fittings",
	"Condensation drainpipe",
	"PEX pipe and fittings",
	"Valves",
	"Sanitary wares",
	"Solar Water heater system",
}

func IsValidApprovalStatus(s string) bool {
	for _, v := range ApprovalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func IsValidMaterialType(s string) bool {
	for _, v := range MaterialTypes {
		if v == s {
			return true
		}
	}
	return false
}
