package service

import (
	"context"
	"fmt"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"go.uber.org/zap"
)

// POService manages purchase orders. Creates run the LPO-release rules and
// the duplicate detector; a force flag overrides a duplicate block.
type POService struct {
	repo      *repository.PurchaseOrderRepository
	materials *repository.MaterialRepository
	engine    *engine.Engine
	logger    *zap.Logger
}

func NewPOService(repo *repository.PurchaseOrderRepository, materials *repository.MaterialRepository, eng *engine.Engine, logger *zap.Logger) *POService {
	return &POService{repo: repo, materials: materials, engine: eng, logger: logger}
}

// CreatePORequest carries a new PO release.
type CreatePORequest struct {
	MaterialID           uint    `json:"material_id" binding:"required"`
	QuoteRef             string  `json:"quote_ref"`
	PORef                string  `json:"po_ref" binding:"required"`
	PODate               string  `json:"po_date"`
	ExpectedDeliveryDate string  `json:"expected_delivery_date"`
	SupplierName         string  `json:"supplier_name" binding:"required"`
	SupplierContact      string  `json:"supplier_contact"`
	SupplierEmail        string  `json:"supplier_email"`
	TotalAmount          float64 `json:"total_amount" binding:"required"`
	Currency             string  `json:"currency"`
	POStatus             string  `json:"po_status"`
	PaymentTerms         string  `json:"payment_terms"`
	DeliveryTerms        string  `json:"delivery_terms"`
	Notes                string  `json:"notes"`
	DocumentPath         string  `json:"document_path"`
	Force                bool    `json:"force"`
}

// UpdatePORequest carries partial edits; nil fields stay untouched.
type UpdatePORequest struct {
	QuoteRef             *string  `json:"quote_ref"`
	PORef                *string  `json:"po_ref"`
	PODate               *string  `json:"po_date"`
	ExpectedDeliveryDate *string  `json:"expected_delivery_date"`
	SupplierName         *string  `json:"supplier_name"`
	SupplierContact      *string  `json:"supplier_contact"`
	SupplierEmail        *string  `json:"supplier_email"`
	TotalAmount          *float64 `json:"total_amount"`
	Currency             *string  `json:"currency"`
	POStatus             *string  `json:"po_status"`
	PaymentTerms         *string  `json:"payment_terms"`
	DeliveryTerms        *string  `json:"delivery_terms"`
	Notes                *string  `json:"notes"`
	DocumentPath         *string  `json:"document_path"`
}

func (s *POService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *POService) Get(ctx context.Context, id uint) (*entity.PurchaseOrder, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *POService) Create(ctx context.Context, userID string, req *CreatePORequest) (*entity.PurchaseOrder, error) {
	if _, err := s.materials.FindByID(ctx, req.MaterialID); err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("material %d not found", req.MaterialID)
		}
		return nil, err
	}

	bag := map[string]interface{}{
		"material_id":            req.MaterialID,
		"supplier_name":          req.SupplierName,
		"supplier_contact":       req.SupplierContact,
		"supplier_email":         req.SupplierEmail,
		"lpo_number":             req.PORef,
		"po_ref":                 req.PORef,
		"release_date":           req.PODate,
		"expected_delivery_date": req.ExpectedDeliveryDate,
		"amount":                 req.TotalAmount,
	}

	result, err := s.engine.Process(ctx, engine.RecordLPORelease, bag, engine.ProcessOptions{
		CheckDuplicates: true,
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

	po := &entity.PurchaseOrder{
		MaterialID:           req.MaterialID,
		QuoteRef:             req.QuoteRef,
		PORef:                req.PORef,
		PODate:               parseOptionalDate(req.PODate),
		ExpectedDeliveryDate: parseOptionalDate(req.ExpectedDeliveryDate),
		SupplierName:         req.SupplierName,
		SupplierContact:      req.SupplierContact,
		SupplierEmail:        req.SupplierEmail,
		TotalAmount:          req.TotalAmount,
		Currency:             orStr(req.Currency, "AED"),
		POStatus:             orStr(req.POStatus, entity.POStatusNotReleased),
		PaymentTerms:         req.PaymentTerms,
		DeliveryTerms:        req.DeliveryTerms,
		Notes:                req.Notes,
		DocumentPath:         req.DocumentPath,
		CreatedBy:            userID,
		UpdatedBy:            userID,
	}

	if err := s.repo.Create(ctx, po); err != nil {
		return nil, err
	}
	s.logger.Info("purchase order created",
		zap.Uint("id", po.ID),
		zap.String("po_ref", po.PORef),
		zap.Float64("total_amount", po.TotalAmount))
	return s.repo.FindByID(ctx, po.ID)
}

func (s *POService) Update(ctx context.Context, id uint, userID string, req *UpdatePORequest) (*entity.PurchaseOrder, error) {
	po, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.PORef != nil && *req.PORef != po.PORef {
		if existing, err := s.repo.FindByRef(ctx, *req.PORef); err == nil && existing.ID != po.ID {
			return nil, fmt.Errorf("PO reference %q already exists", *req.PORef)
		}
		po.PORef = *req.PORef
	}
	if req.POStatus != nil {
		if !entity.IsValidPOStatus(*req.POStatus) {
			return nil, fmt.Errorf("invalid PO status %q", *req.POStatus)
		}
		po.POStatus = *req.POStatus
	}
	if req.TotalAmount != nil {
		if *req.TotalAmount <= 0 {
			return nil, fmt.Errorf("total_amount must be positive")
		}
		po.TotalAmount = *req.TotalAmount
	}
	if req.QuoteRef != nil {
		po.QuoteRef = *req.QuoteRef
	}
	if req.PODate != nil {
		po.PODate = parseOptionalDate(*req.PODate)
	}
	if req.ExpectedDeliveryDate != nil {
		po.ExpectedDeliveryDate = parseOptionalDate(*req.ExpectedDeliveryDate)
	}
	if req.SupplierName != nil {
		po.SupplierName = *req.SupplierName
	}
	if req.SupplierContact != nil {
		po.SupplierContact = *req.SupplierContact
	}
	if req.SupplierEmail != nil {
		po.SupplierEmail = *req.SupplierEmail
	}
	if req.Currency != nil {
		po.Currency = *req.Currency
	}
	if req.PaymentTerms != nil {
		po.PaymentTerms = *req.PaymentTerms
	}
	if req.DeliveryTerms != nil {
		po.DeliveryTerms = *req.DeliveryTerms
	}
	if req.Notes != nil {
		po.Notes = *req.Notes
	}
	if req.DocumentPath != nil {
		po.DocumentPath = *req.DocumentPath
	}
	po.UpdatedBy = userID

	if err := s.repo.Update(ctx, po); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, po.ID)
}

// Delete removes the PO together with its payments and deliveries.
func (s *POService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
