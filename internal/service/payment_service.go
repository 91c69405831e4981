package service

import (
	"context"
	"fmt"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService manages payments against POs. Every write that changes an
// amount re-checks the PO budget inside the transaction.
type PaymentService struct {
	db     *gorm.DB
	repo   *repository.PaymentRepository
	pos    *repository.PurchaseOrderRepository
	engine *engine.Engine
	logger *zap.Logger
}

func NewPaymentService(db *gorm.DB, repo *repository.PaymentRepository, pos *repository.PurchaseOrderRepository, eng *engine.Engine, logger *zap.Logger) *PaymentService {
	return &PaymentService{db: db, repo: repo, pos: pos, engine: eng, logger: logger}
}

// CreatePaymentRequest carries a new invoice or payment entry. POID may be
// zero when a reference is present; the matcher then resolves the PO.
type CreatePaymentRequest struct {
	POID             uint    `json:"po_id"`
	POReference      string  `json:"po_reference"`
	PaymentStructure string  `json:"payment_structure"`
	PaymentType      string  `json:"payment_type"`
	TotalAmount      float64 `json:"total_amount" binding:"required"`
	PaidAmount       float64 `json:"paid_amount"`
	PaymentDate      string  `json:"payment_date"`
	DueDate          string  `json:"due_date"`
	PaymentTerms     string  `json:"payment_terms"`
	PaymentRef       string  `json:"payment_ref"`
	InvoiceRef       string  `json:"invoice_ref"`
	PaymentMethod    string  `json:"payment_method"`
	Currency         string  `json:"currency"`
	PaymentStatus    string  `json:"payment_status"`
	Notes            string  `json:"notes"`
	InvoicePath      string  `json:"invoice_path"`
	Force            bool    `json:"force"`
}

// UpdatePaymentRequest carries partial edits; nil fields stay untouched.
type UpdatePaymentRequest struct {
	PaymentStructure *string  `json:"payment_structure"`
	PaymentType      *string  `json:"payment_type"`
	TotalAmount      *float64 `json:"total_amount"`
	PaidAmount       *float64 `json:"paid_amount"`
	PaymentDate      *string  `json:"payment_date"`
	PaymentTerms     *string  `json:"payment_terms"`
	PaymentRef       *string  `json:"payment_ref"`
	InvoiceRef       *string  `json:"invoice_ref"`
	PaymentMethod    *string  `json:"payment_method"`
	Currency         *string  `json:"currency"`
	PaymentStatus    *string  `json:"payment_status"`
	Notes            *string  `json:"notes"`
	InvoicePath      *string  `json:"invoice_path"`
	ReceiptPath      *string  `json:"receipt_path"`
}

func (s *PaymentService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Payment, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *PaymentService) Get(ctx context.Context, id uint) (*entity.Payment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PaymentService) ListByPO(ctx context.Context, poID uint) ([]entity.Payment, error) {
	return s.repo.FindByPO(ctx, poID)
}

func (s *PaymentService) Create(ctx context.Context, userID string, req *CreatePaymentRequest) (*entity.Payment, error) {
	bag := map[string]interface{}{
		"po_id":        req.POID,
		"po_reference": req.POReference,
		"payment_date": req.PaymentDate,
		"due_date":     req.DueDate,
		"invoice_date": req.PaymentDate,
		"total_amount": req.TotalAmount,
		"invoice_ref":  req.InvoiceRef,
		"payment_ref":  req.PaymentRef,
	}
	if req.InvoiceRef != "" {
		bag["invoice_number"] = req.InvoiceRef
	}

	result, err := s.engine.Process(ctx, engine.RecordInvoice, bag, engine.ProcessOptions{
		CheckDuplicates:  true,
		MatchInvoiceToPO: req.POID == 0,
		Match:            engine.MatchOptions{Fuzzy: true},
	})
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return nil, &ValidationError{Errors: result.Errors, Warnings: result.Warnings}
	}
	if len(result.Duplicates) > 0 && !req.Force {
		return nil, &DuplicateError{Candidates: result.Duplicates}
	}

	poID := req.POID
	if poID == 0 && result.MatchedPOID != nil {
		poID = *result.MatchedPOID
	}
	if poID == 0 {
		return nil, fmt.Errorf("payment could not be matched to a purchase order")
	}

	p := &entity.Payment{
		POID:             poID,
		PaymentStructure: orStr(req.PaymentStructure, entity.PaymentStructureSingle),
		PaymentType:      req.PaymentType,
		TotalAmount:      req.TotalAmount,
		PaidAmount:       req.PaidAmount,
		PaymentDate:      parseOptionalDate(req.PaymentDate),
		PaymentTerms:     req.PaymentTerms,
		PaymentRef:       req.PaymentRef,
		InvoiceRef:       req.InvoiceRef,
		PaymentMethod:    req.PaymentMethod,
		Currency:         orStr(req.Currency, "AED"),
		PaymentStatus:    orStr(req.PaymentStatus, entity.PaymentStatusPending),
		Notes:            req.Notes,
		InvoicePath:      req.InvoicePath,
		CreatedBy:        userID,
		UpdatedBy:        userID,
	}
	p.CalculatePercentage()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		outcome, err := s.engine.Validator().CheckPaymentAgainstPO(ctx, tx, poID, chargedAmount(p), 0)
		if err != nil {
			return err
		}
		if outcome.Severity == engine.BudgetExceeded {
			return &BudgetError{Outcome: outcome}
		}
		return s.repo.CreateTx(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		zap.Uint("id", p.ID),
		zap.Uint("po_id", p.POID),
		zap.Float64("total_amount", p.TotalAmount))
	return s.repo.FindByID(ctx, p.ID)
}

func (s *PaymentService) Update(ctx context.Context, id uint, userID string, req *UpdatePaymentRequest) (*entity.Payment, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	amountChanged := false
	if req.TotalAmount != nil {
		if *req.TotalAmount <= 0 {
			return nil, fmt.Errorf("total_amount must be positive")
		}
		p.TotalAmount = *req.TotalAmount
		amountChanged = true
	}
	if req.PaidAmount != nil {
		if *req.PaidAmount < 0 {
			return nil, fmt.Errorf("paid_amount must not be negative")
		}
		p.PaidAmount = *req.PaidAmount
		amountChanged = true
	}
	if req.PaymentStructure != nil {
		if !entity.IsValidPaymentStructure(*req.PaymentStructure) {
			return nil, fmt.Errorf("invalid payment structure %q", *req.PaymentStructure)
		}
		p.PaymentStructure = *req.PaymentStructure
	}
	if req.PaymentType != nil {
		p.PaymentType = *req.PaymentType
	}
	if req.PaymentDate != nil {
		p.PaymentDate = parseOptionalDate(*req.PaymentDate)
	}
	if req.PaymentTerms != nil {
		p.PaymentTerms = *req.PaymentTerms
	}
	if req.PaymentRef != nil {
		p.PaymentRef = *req.PaymentRef
	}
	if req.InvoiceRef != nil {
		p.InvoiceRef = *req.InvoiceRef
	}
	if req.PaymentMethod != nil {
		p.PaymentMethod = *req.PaymentMethod
	}
	if req.Currency != nil {
		p.Currency = *req.Currency
	}
	if req.PaymentStatus != nil {
		p.PaymentStatus = *req.PaymentStatus
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	if req.InvoicePath != nil {
		p.InvoicePath = *req.InvoicePath
	}
	if req.ReceiptPath != nil {
		p.ReceiptPath = *req.ReceiptPath
	}
	p.CalculatePercentage()
	p.UpdatedBy = userID

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if amountChanged {
			outcome, err := s.engine.Validator().CheckPaymentAgainstPO(ctx, tx, p.POID, chargedAmount(p), p.ID)
			if err != nil {
				return err
			}
			if outcome.Severity == engine.BudgetExceeded {
				return &BudgetError{Outcome: outcome}
			}
		}
		return tx.WithContext(ctx).Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, p.ID)
}

func (s *PaymentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// chargedAmount is the value a payment row contributes to the PO budget:
// the settled amount when present, the invoiced amount otherwise.
func chargedAmount(p *entity.Payment) float64 {
	if p.PaidAmount > 0 {
		return p.PaidAmount
	}
	return p.TotalAmount
}
