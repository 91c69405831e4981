package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/shockerli/cvt"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BudgetViolationError carries the budget message when applying a payment
// suggestion would break the PO invariant.
type BudgetViolationError struct {
	Message string
}

func (e *BudgetViolationError) Error() string { return e.Message }

// ApplySuggestion writes a pending suggestion into its target table. The
// whole apply runs in one transaction; on failure the suggestion stays
// pending. auto selects the final status (auto_applied vs approved).
func (p *Pipeline) ApplySuggestion(ctx context.Context, s *entity.AISuggestion, auto bool, reviewedBy, reviewNotes string) error {
	if s.Status != entity.SuggestionPending {
		return fmt.Errorf("suggestion %d is not pending", s.ID)
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := p.applyTo(ctx, tx, s); err != nil {
			return err
		}

		now := time.Now()
		if auto {
			s.Status = entity.SuggestionAutoApplied
		} else {
			s.Status = entity.SuggestionApproved
			s.ReviewedBy = orDefault(reviewedBy, "User")
			s.ReviewNotes = reviewNotes
		}
		s.ReviewedAt = &now
		return tx.WithContext(ctx).Save(s).Error
	})
	if err != nil {
		p.logger.Warn("suggestion apply failed",
			zap.Uint("suggestion_id", s.ID),
			zap.String("target", s.TargetTable),
			zap.Error(err))
		return err
	}

	p.logger.Info("suggestion applied",
		zap.Uint("suggestion_id", s.ID),
		zap.String("target", s.TargetTable),
		zap.String("status", s.Status))
	return nil
}

func (p *Pipeline) applyTo(ctx context.Context, tx *gorm.DB, s *entity.AISuggestion) error {
	updatedBy := fmt.Sprintf("AI (%s)", orDefault(s.AIModel, "unknown"))
	bag := map[string]interface{}(s.SuggestedData)

	switch s.TargetTable {
	case entity.TargetMaterials:
		return p.applyMaterial(ctx, tx, s, bag, updatedBy)
	case entity.TargetPurchaseOrders:
		return p.applyPurchaseOrder(ctx, tx, s, bag, updatedBy)
	case entity.TargetPayments:
		return p.applyPayment(ctx, tx, s, bag, updatedBy)
	case entity.TargetDeliveries:
		return p.applyDelivery(ctx, tx, s, bag, updatedBy)
	default:
		return fmt.Errorf("unknown target table %q", s.TargetTable)
	}
}

func (p *Pipeline) applyMaterial(ctx context.Context, tx *gorm.DB, s *entity.AISuggestion, bag map[string]interface{}, updatedBy string) error {
	var m entity.Material
	if s.ActionType == entity.ActionUpdate {
		if s.TargetID == nil {
			return fmt.Errorf("update suggestion without target id")
		}
		if err := tx.WithContext(ctx).Where("id = ?", *s.TargetID).First(&m).Error; err != nil {
			return err
		}
	} else {
		m.CreatedBy = updatedBy
	}

	if v, ok := coerceString(bag["material_type"]); ok {
		m.MaterialType = v
	}
	if v, ok := coerceString(bag["description"]); ok {
		m.Description = v
	}
	if v, ok := coerceString(bag["approval_status"]); ok && entity.IsValidApprovalStatus(v) {
		m.ApprovalStatus = v
	}
	if t := coerceDate(bag["approval_date"]); t != nil {
		m.ApprovalDate = t
	}
	if v, ok := coerceString(bag["approval_notes"]); ok {
		m.ApprovalNotes = v
	}
	if v, ok := coerceString(bag["submittal_ref"]); ok {
		m.SubmittalRef = v
	}
	if v, ok := coerceString(bag["specification_ref"]); ok {
		m.SpecificationRef = v
	}
	m.UpdatedBy = updatedBy

	return tx.WithContext(ctx).Save(&m).Error
}

func (p *Pipeline) applyPurchaseOrder(ctx context.Context, tx *gorm.DB, s *entity.AISuggestion, bag map[string]interface{}, updatedBy string) error {
	var po entity.PurchaseOrder
	if s.ActionType == entity.ActionUpdate {
		if s.TargetID == nil {
			return fmt.Errorf("update suggestion without target id")
		}
		if err := tx.WithContext(ctx).Where("id = ?", *s.TargetID).First(&po).Error; err != nil {
			return err
		}
	} else {
		po.MaterialID = uint(cvt.Uint64(bag["material_id"]))
		if v, ok := coerceString(bag["po_ref"]); ok {
			po.PORef = v
		}
		po.CreatedBy = updatedBy
	}

	applyPOFields(&po, bag)
	po.UpdatedBy = updatedBy

	return tx.WithContext(ctx).Save(&po).Error
}

func (p *Pipeline) applyPayment(ctx context.Context, tx *gorm.DB, s *entity.AISuggestion, bag map[string]interface{}, updatedBy string) error {
	var pay entity.Payment
	excludeID := uint(0)
	if s.ActionType == entity.ActionUpdate {
		if s.TargetID == nil {
			return fmt.Errorf("update suggestion without target id")
		}
		if err := tx.WithContext(ctx).Where("id = ?", *s.TargetID).First(&pay).Error; err != nil {
			return err
		}
		excludeID = pay.ID
	} else {
		pay.POID = uint(cvt.Uint64(bag["po_id"]))
		pay.CreatedBy = updatedBy
	}

	applyPaymentFields(&pay, bag)
	pay.CalculatePercentage()
	pay.UpdatedBy = updatedBy

	// The budget invariant holds on every apply path, auto or approved.
	if pay.POID > 0 {
		amount := pay.TotalAmount
		if pay.PaidAmount > 0 {
			amount = pay.PaidAmount
		}
		outcome, err := p.validator.CheckPaymentAgainstPO(ctx, tx, pay.POID, amount, excludeID)
		if err != nil {
			return err
		}
		if outcome.Severity == engine.BudgetExceeded {
			return &BudgetViolationError{Message: outcome.Message}
		}
	}

	return tx.WithContext(ctx).Save(&pay).Error
}

func (p *Pipeline) applyDelivery(ctx context.Context, tx *gorm.DB, s *entity.AISuggestion, bag map[string]interface{}, updatedBy string) error {
	var d entity.Delivery
	if s.ActionType == entity.ActionUpdate {
		if s.TargetID == nil {
			return fmt.Errorf("update suggestion without target id")
		}
		if err := tx.WithContext(ctx).Where("id = ?", *s.TargetID).First(&d).Error; err != nil {
			return err
		}
	} else {
		d.POID = uint(cvt.Uint64(bag["po_id"]))
		d.CreatedBy = updatedBy
	}

	applyDeliveryFields(&d, bag)
	d.CheckDelay(time.Now())
	d.UpdatedBy = updatedBy

	return tx.WithContext(ctx).Save(&d).Error
}
