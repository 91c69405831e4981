// Package pipeline reconciles document-extraction results against delivery,
// PO and payment records under the confidence policy: high-confidence bags
// are applied directly, everything else becomes a suggestion for human
// review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actions reported back to the extraction workflow.
const (
	ActionAutoApplied       = "auto_applied"
	ActionSuggestionCreated = "suggestion_created"
	ActionFailureRecorded   = "failure_recorded"
	ActionDuplicateIgnored  = "duplicate_ignored"
)

// ErrBusy means another extraction for the same target is in flight.
var ErrBusy = errors.New("extraction already in progress for target")

const lockTTL = 30 * time.Second

// Outcome is the pipeline's answer to one extraction message.
type Outcome struct {
	Action         string   `json:"action"`
	RequiresReview bool     `json:"requires_review"`
	TargetKind     string   `json:"target_kind"`
	TargetID       uint     `json:"target_id"`
	Status         string   `json:"extraction_status"`
	Confidence     float64  `json:"extraction_confidence"`
	SuggestionID   *uint    `json:"suggestion_id,omitempty"`
	Message        string   `json:"message"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Pipeline drives reconciliation. rdb may be nil; without redis the coarse
// per-target lock is skipped and the DB transaction alone guards state.
type Pipeline struct {
	db              *gorm.DB
	repos           *repository.Repositories
	validator       *engine.Validator
	rdb             *redis.Client
	logger          *zap.Logger
	autoThreshold   float64
	reviewThreshold float64
}

func New(db *gorm.DB, repos *repository.Repositories, validator *engine.Validator, rdb *redis.Client, logger *zap.Logger, autoThreshold, reviewThreshold float64) *Pipeline {
	if autoThreshold <= 0 {
		autoThreshold = 90
	}
	if reviewThreshold <= 0 {
		reviewThreshold = 60
	}
	return &Pipeline{
		db:              db,
		repos:           repos,
		validator:       validator,
		rdb:             rdb,
		logger:          logger,
		autoThreshold:   autoThreshold,
		reviewThreshold: reviewThreshold,
	}
}

// AutoThreshold exposes the configured auto-apply bar.
func (p *Pipeline) AutoThreshold() float64 { return p.autoThreshold }

// ProcessExtraction handles one inbound message end to end.
func (p *Pipeline) ProcessExtraction(ctx context.Context, msg *ExtractionMessage) (*Outcome, error) {
	unlock, err := p.acquireLock(ctx, msg.TargetKind, msg.TargetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	switch msg.TargetKind {
	case TargetDelivery:
		return p.processDelivery(ctx, msg)
	case TargetPO:
		return p.processPO(ctx, msg)
	case TargetPayment:
		return p.processPayment(ctx, msg)
	default:
		return nil, fmt.Errorf("unknown target kind %q", msg.TargetKind)
	}
}

func (p *Pipeline) acquireLock(ctx context.Context, kind string, id uint) (func(), error) {
	if p.rdb == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("matdash:extract:%s:%d", kind, id)
	ok, err := p.rdb.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		// redis being down must not stall reconciliation
		p.logger.Warn("extraction lock unavailable", zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { p.rdb.Del(context.Background(), key) }, nil
}

func (p *Pipeline) processDelivery(ctx context.Context, msg *ExtractionMessage) (*Outcome, error) {
	d, err := p.repos.Delivery.FindByID(ctx, msg.TargetID)
	if err != nil {
		return nil, err
	}

	checksum := msg.Checksum()
	if d.ExtractionChecksum == checksum && d.ExtractionStatus != entity.ExtractionPending {
		return p.duplicateOutcome(TargetDelivery, d.ID, d.ExtractionStatus, d.ExtractionConfidence), nil
	}

	if msg.Status == entity.ExtractionFailed {
		return p.recordDeliveryFailure(ctx, d, msg)
	}

	if msg.Confidence >= p.autoThreshold {
		return p.autoApplyDelivery(ctx, d, msg, checksum)
	}
	return p.suggestForTarget(ctx, TargetDelivery, d.ID, msg, checksum)
}

func (p *Pipeline) recordDeliveryFailure(ctx context.Context, d *entity.Delivery, msg *ExtractionMessage) (*Outcome, error) {
	now := time.Now()
	d.ExtractionStatus = entity.ExtractionFailed
	d.ExtractionDate = &now
	if msg.ErrorMessage != "" {
		d.Notes = appendNote(d.Notes, "Extraction failed: "+msg.ErrorMessage)
	}
	if err := p.repos.Delivery.Update(ctx, d); err != nil {
		return nil, err
	}
	p.logger.Warn("delivery extraction failed",
		zap.Uint("delivery_id", d.ID), zap.String("error", msg.ErrorMessage))
	return &Outcome{
		Action:     ActionFailureRecorded,
		TargetKind: TargetDelivery,
		TargetID:   d.ID,
		Status:     entity.ExtractionFailed,
		Message:    "Extraction failure recorded",
	}, nil
}

func (p *Pipeline) autoApplyDelivery(ctx context.Context, d *entity.Delivery, msg *ExtractionMessage, checksum string) (*Outcome, error) {
	now := time.Now()
	applied := applyDeliveryFields(d, msg.Extracted)

	d.ExtractedData = msg.Extracted
	d.ExtractionStatus = entity.ExtractionCompleted
	d.ExtractionDate = &now
	d.ExtractionConfidence = msg.Confidence
	d.ExtractionChecksum = checksum
	d.UpdatedBy = "AI (Auto)"
	if msg.DocumentPath != "" {
		d.DeliveryNotePath = msg.DocumentPath
	}

	p.applyDeliveryItems(d, msg.Extracted)
	d.CheckDelay(now)

	if err := p.repos.Delivery.Update(ctx, d); err != nil {
		return nil, err
	}

	p.logger.Info("delivery extraction auto-applied",
		zap.Uint("delivery_id", d.ID),
		zap.Float64("confidence", msg.Confidence),
		zap.Strings("fields", applied))

	return &Outcome{
		Action:     ActionAutoApplied,
		TargetKind: TargetDelivery,
		TargetID:   d.ID,
		Status:     entity.ExtractionCompleted,
		Confidence: msg.Confidence,
		Message:    "Extraction data applied",
	}, nil
}

// applyDeliveryItems derives the item count and, when items carry delivered
// flags, the delivery percentage and status.
func (p *Pipeline) applyDeliveryItems(d *entity.Delivery, bag map[string]interface{}) {
	items, ok := bag["items"].([]interface{})
	if !ok {
		if n, okTotal := coerceFloat(bag["total_items"]); okTotal {
			d.ExtractedItemCount = int(n)
		}
		return
	}
	d.ExtractedItemCount = len(items)
	if len(items) == 0 {
		return
	}

	delivered := 0
	flagged := false
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := item["delivered"]; ok {
			flagged = true
			if b, okBool := v.(bool); okBool && b {
				delivered++
			}
		}
	}
	if !flagged {
		return
	}

	pct := float64(delivered) / float64(len(items)) * 100
	d.DeliveryPercentage = float64(int(pct*100+0.5)) / 100
	if d.DeliveryPercentage == 100 {
		d.DeliveryStatus = entity.DeliveryStatusCompleted
	} else if d.DeliveryPercentage > 0 {
		d.DeliveryStatus = entity.DeliveryStatusPartial
	}
}

func (p *Pipeline) processPO(ctx context.Context, msg *ExtractionMessage) (*Outcome, error) {
	po, err := p.repos.PurchaseOrder.FindByID(ctx, msg.TargetID)
	if err != nil {
		return nil, err
	}

	checksum := msg.Checksum()
	if po.ExtractionChecksum == checksum && po.ExtractionStatus != entity.ExtractionPending {
		return p.duplicateOutcome(TargetPO, po.ID, po.ExtractionStatus, po.ExtractionConfidence), nil
	}

	if msg.Status == entity.ExtractionFailed {
		po.ExtractionStatus = entity.ExtractionFailed
		if err := p.repos.PurchaseOrder.Update(ctx, po); err != nil {
			return nil, err
		}
		return &Outcome{
			Action:     ActionFailureRecorded,
			TargetKind: TargetPO,
			TargetID:   po.ID,
			Status:     entity.ExtractionFailed,
			Message:    "Extraction failure recorded",
		}, nil
	}

	if msg.Confidence >= p.autoThreshold {
		applyPOFields(po, msg.Extracted)
		po.ExtractedData = msg.Extracted
		po.ExtractionStatus = entity.ExtractionCompleted
		po.ExtractionConfidence = msg.Confidence
		po.ExtractionChecksum = checksum
		po.UpdatedBy = "AI (Auto)"
		if msg.DocumentPath != "" {
			po.DocumentPath = msg.DocumentPath
		}
		if err := p.repos.PurchaseOrder.Update(ctx, po); err != nil {
			return nil, err
		}
		p.logger.Info("po extraction auto-applied",
			zap.Uint("po_id", po.ID), zap.Float64("confidence", msg.Confidence))
		return &Outcome{
			Action:     ActionAutoApplied,
			TargetKind: TargetPO,
			TargetID:   po.ID,
			Status:     entity.ExtractionCompleted,
			Confidence: msg.Confidence,
			Message:    "Extraction data applied",
		}, nil
	}
	return p.suggestForTarget(ctx, TargetPO, po.ID, msg, checksum)
}

func (p *Pipeline) processPayment(ctx context.Context, msg *ExtractionMessage) (*Outcome, error) {
	pay, err := p.repos.Payment.FindByID(ctx, msg.TargetID)
	if err != nil {
		return nil, err
	}

	checksum := msg.Checksum()
	if pay.ExtractionChecksum == checksum && pay.ExtractionStatus != entity.ExtractionPending {
		return p.duplicateOutcome(TargetPayment, pay.ID, pay.ExtractionStatus, pay.ExtractionConfidence), nil
	}

	if msg.Status == entity.ExtractionFailed {
		pay.ExtractionStatus = entity.ExtractionFailed
		if err := p.repos.Payment.Update(ctx, pay); err != nil {
			return nil, err
		}
		return &Outcome{
			Action:     ActionFailureRecorded,
			TargetKind: TargetPayment,
			TargetID:   pay.ID,
			Status:     entity.ExtractionFailed,
			Message:    "Extraction failure recorded",
		}, nil
	}

	if msg.Confidence >= p.autoThreshold {
		return p.autoApplyPayment(ctx, pay, msg, checksum)
	}
	return p.suggestForTarget(ctx, TargetPayment, pay.ID, msg, checksum)
}

// autoApplyPayment runs inside one transaction with the parent PO locked so
// the budget invariant holds under concurrent payments. A budget violation
// degrades the message to a suggestion instead of applying.
func (p *Pipeline) autoApplyPayment(ctx context.Context, pay *entity.Payment, msg *ExtractionMessage, checksum string) (*Outcome, error) {
	var budgetErr string

	err := p.db.Transaction(func(tx *gorm.DB) error {
		applyPaymentFields(pay, msg.Extracted)
		pay.CalculatePercentage()

		amount := pay.TotalAmount
		if pay.PaidAmount > 0 {
			amount = pay.PaidAmount
		}
		outcome, err := p.validator.CheckPaymentAgainstPO(ctx, tx, pay.POID, amount, pay.ID)
		if err != nil {
			return err
		}
		if outcome.Severity == engine.BudgetExceeded {
			budgetErr = outcome.Message
			return nil // handled below, outside this transaction
		}

		pay.ExtractedData = msg.Extracted
		pay.ExtractionStatus = entity.ExtractionCompleted
		pay.ExtractionConfidence = msg.Confidence
		pay.ExtractionChecksum = checksum
		pay.UpdatedBy = "AI (Auto)"
		if msg.DocumentPath != "" {
			pay.InvoicePath = msg.DocumentPath
		}
		return tx.WithContext(ctx).Save(pay).Error
	})
	if err != nil {
		return nil, err
	}

	if budgetErr != "" {
		p.logger.Warn("payment auto-apply blocked by budget check",
			zap.Uint("payment_id", pay.ID), zap.String("reason", budgetErr))
		out, err := p.suggestForTarget(ctx, TargetPayment, pay.ID, msg, checksum)
		if err != nil {
			return nil, err
		}
		out.Warnings = append(out.Warnings, budgetErr)
		return out, nil
	}

	p.logger.Info("payment extraction auto-applied",
		zap.Uint("payment_id", pay.ID), zap.Float64("confidence", msg.Confidence))
	return &Outcome{
		Action:     ActionAutoApplied,
		TargetKind: TargetPayment,
		TargetID:   pay.ID,
		Status:     entity.ExtractionCompleted,
		Confidence: msg.Confidence,
		Message:    "Extraction data applied",
	}, nil
}

// suggestForTarget writes an AISuggestion for human review and flags the
// target record needs_review.
func (p *Pipeline) suggestForTarget(ctx context.Context, kind string, targetID uint, msg *ExtractionMessage, checksum string) (*Outcome, error) {
	table := tableFor(kind)
	current, err := p.currentSnapshot(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	projected := projectFields(kind, msg.Extracted)
	missing := missingFrom(kind, projected)

	suggestion := &entity.AISuggestion{
		TargetTable:        table,
		TargetID:           &targetID,
		ActionType:         entity.ActionUpdate,
		AIModel:            orDefault(msg.AIModel, "unknown"),
		ConfidenceScore:    msg.Confidence,
		ExtractionSource:   "document_upload",
		SourceDocumentPath: msg.DocumentPath,
		SuggestedData:      projected,
		CurrentData:        current,
		AIReasoning:        p.reviewReasoning(msg.Confidence, projected),
		MissingFields:      missing,
		Status:             entity.SuggestionPending,
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(suggestion).Error; err != nil {
			return err
		}
		return p.markNeedsReview(ctx, tx, kind, targetID, msg, checksum)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("extraction routed to review",
		zap.String("target", table),
		zap.Uint("target_id", targetID),
		zap.Float64("confidence", msg.Confidence),
		zap.Uint("suggestion_id", suggestion.ID))

	return &Outcome{
		Action:         ActionSuggestionCreated,
		RequiresReview: true,
		TargetKind:     kind,
		TargetID:       targetID,
		Status:         entity.ExtractionNeedsReview,
		Confidence:     msg.Confidence,
		SuggestionID:   &suggestion.ID,
		Message:        "Suggestion created for review",
	}, nil
}

func (p *Pipeline) markNeedsReview(ctx context.Context, tx *gorm.DB, kind string, id uint, msg *ExtractionMessage, checksum string) error {
	updates := map[string]interface{}{
		"extraction_status":     entity.ExtractionNeedsReview,
		"extraction_confidence": msg.Confidence,
		"extraction_checksum":   checksum,
	}
	switch kind {
	case TargetDelivery:
		now := time.Now()
		updates["extraction_date"] = &now
		updates["extracted_data"] = entity.JSONMap(msg.Extracted)
		return tx.WithContext(ctx).Model(&entity.Delivery{}).Where("id = ?", id).Updates(updates).Error
	case TargetPO:
		updates["extracted_data"] = entity.JSONMap(msg.Extracted)
		return tx.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("id = ?", id).Updates(updates).Error
	case TargetPayment:
		updates["extracted_data"] = entity.JSONMap(msg.Extracted)
		return tx.WithContext(ctx).Model(&entity.Payment{}).Where("id = ?", id).Updates(updates).Error
	}
	return fmt.Errorf("unknown target kind %q", kind)
}

// currentSnapshot captures present field values for the review diff, dates
// rendered as ISO strings.
func (p *Pipeline) currentSnapshot(ctx context.Context, kind string, id uint) (entity.JSONMap, error) {
	switch kind {
	case TargetDelivery:
		d, err := p.repos.Delivery.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.JSONMap{
			"delivery_date":          isoDate(d.ActualDeliveryDate),
			"expected_delivery_date": isoDate(d.ExpectedDeliveryDate),
			"status":                 d.DeliveryStatus,
			"ordered_quantity":       d.OrderedQuantity,
			"delivered_quantity":     d.DeliveredQuantity,
			"delivery_percentage":    d.DeliveryPercentage,
			"carrier":                d.Carrier,
			"received_by":            d.ReceivedBy,
		}, nil
	case TargetPO:
		po, err := p.repos.PurchaseOrder.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.JSONMap{
			"po_date":                isoDate(po.PODate),
			"expected_delivery_date": isoDate(po.ExpectedDeliveryDate),
			"supplier_name":          po.SupplierName,
			"total_amount":           po.TotalAmount,
			"po_status":              po.POStatus,
			"payment_terms":          po.PaymentTerms,
		}, nil
	case TargetPayment:
		pay, err := p.repos.Payment.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.JSONMap{
			"payment_date":   isoDate(pay.PaymentDate),
			"total_amount":   pay.TotalAmount,
			"paid_amount":    pay.PaidAmount,
			"payment_ref":    pay.PaymentRef,
			"invoice_ref":    pay.InvoiceRef,
			"payment_status": pay.PaymentStatus,
		}, nil
	}
	return nil, fmt.Errorf("unknown target kind %q", kind)
}

func (p *Pipeline) duplicateOutcome(kind string, id uint, status string, confidence float64) *Outcome {
	p.logger.Debug("duplicate extraction message ignored",
		zap.String("target", kind), zap.Uint("target_id", id))
	return &Outcome{
		Action:     ActionDuplicateIgnored,
		TargetKind: kind,
		TargetID:   id,
		Status:     status,
		Confidence: confidence,
		Message:    "Identical extraction already processed",
	}
}

func tableFor(kind string) string {
	switch kind {
	case TargetDelivery:
		return entity.TargetDeliveries
	case TargetPO:
		return entity.TargetPurchaseOrders
	case TargetPayment:
		return entity.TargetPayments
	}
	return kind
}

func missingFrom(kind string, projected map[string]interface{}) entity.StringList {
	var missing entity.StringList
	for k := range knownFields(kind) {
		if _, ok := projected[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// reviewReasoning explains why the bag was routed to review. Below the
// review threshold the extracted values are called out as unreliable rather
// than merely unverified.
func (p *Pipeline) reviewReasoning(confidence float64, projected map[string]interface{}) string {
	if confidence < p.reviewThreshold {
		return fmt.Sprintf(
			"Extraction confidence %.1f is below the review threshold %.0f; treat extracted values as unreliable and re-check the source document for %s.",
			confidence, p.reviewThreshold, verifyHint(projected))
	}
	return fmt.Sprintf(
		"Extraction confidence %.1f is below the auto-apply threshold %.0f; verify %s before applying.",
		confidence, p.autoThreshold, verifyHint(projected))
}

func verifyHint(projected map[string]interface{}) string {
	if len(projected) == 0 {
		return "all fields"
	}
	names := make([]string, 0, len(projected))
	for k := range projected {
		names = append(names, k)
	}
	sort.Strings(names)
	if len(names) > 3 {
		names = names[:3]
	}
	return fmt.Sprintf("%v", names)
}

func isoDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + "\n" + extra
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
