package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/shockerli/cvt"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Keys an item row may carry beyond the chosen column labels.
var lpoDerivedKeys = []string{"number", "vat_amount", "total_amount"}

// LPOService builds local purchase orders from supplier quotes: numbering,
// item-table layout, VAT totals and the lifecycle audit trail.
type LPOService struct {
	db     *gorm.DB
	repo   *repository.LPORepository
	logger *zap.Logger
}

func NewLPOService(db *gorm.DB, repo *repository.LPORepository, logger *zap.Logger) *LPOService {
	return &LPOService{db: db, repo: repo, logger: logger}
}

// CreateLPORequest carries the fields of a new draft LPO.
type CreateLPORequest struct {
	LPODate       string `json:"lpo_date"`
	QuotationDate string `json:"quotation_date"`
	DeliveryDate  string `json:"delivery_date"`

	ProjectName     string `json:"project_name" binding:"required"`
	ProjectLocation string `json:"project_location"`
	Consultant      string `json:"consultant"`

	SupplierName    string `json:"supplier_name" binding:"required"`
	SupplierAddress string `json:"supplier_address"`
	SupplierTRN     string `json:"supplier_trn"`
	SupplierTel     string `json:"supplier_tel"`
	SupplierFax     string `json:"supplier_fax"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`

	QuotationRef     string `json:"quotation_ref"`
	QuotationPDFPath string `json:"quotation_pdf_path"`

	ColumnStructure []string                 `json:"column_structure" binding:"required"`
	Items           []map[string]interface{} `json:"items" binding:"required"`

	VATPercentage *float64 `json:"vat_percentage"`

	PaymentTerms  string `json:"payment_terms"`
	DeliveryTerms string `json:"delivery_terms"`
	WarrantyTerms string `json:"warranty_terms"`
	OtherTerms    string `json:"other_terms"`

	Notes         string `json:"notes"`
	InternalNotes string `json:"internal_notes"`

	ExtractionMethod     string  `json:"extraction_method"`
	ExtractionConfidence float64 `json:"extraction_confidence"`
	ExtractionNotes      string  `json:"extraction_notes"`
}

// UpdateLPORequest carries partial edits; nil fields stay untouched.
type UpdateLPORequest struct {
	LPODate       *string `json:"lpo_date"`
	QuotationDate *string `json:"quotation_date"`
	DeliveryDate  *string `json:"delivery_date"`

	ProjectName     *string `json:"project_name"`
	ProjectLocation *string `json:"project_location"`
	Consultant      *string `json:"consultant"`

	SupplierName    *string `json:"supplier_name"`
	SupplierAddress *string `json:"supplier_address"`
	SupplierTRN     *string `json:"supplier_trn"`
	SupplierTel     *string `json:"supplier_tel"`
	SupplierFax     *string `json:"supplier_fax"`
	ContactPerson   *string `json:"contact_person"`
	ContactNumber   *string `json:"contact_number"`

	QuotationRef *string `json:"quotation_ref"`

	ColumnStructure []string                 `json:"column_structure"`
	Items           []map[string]interface{} `json:"items"`

	VATPercentage *float64 `json:"vat_percentage"`

	PaymentTerms  *string `json:"payment_terms"`
	DeliveryTerms *string `json:"delivery_terms"`
	WarrantyTerms *string `json:"warranty_terms"`
	OtherTerms    *string `json:"other_terms"`

	Notes         *string `json:"notes"`
	InternalNotes *string `json:"internal_notes"`
}

// ChangeStatusRequest moves an LPO along its lifecycle.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (s *LPOService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.LPO, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *LPOService) Get(ctx context.Context, id uint) (*entity.LPO, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *LPOService) GetByNumber(ctx context.Context, number string) (*entity.LPO, error) {
	return s.repo.FindByNumber(ctx, number)
}

// PreviewNumber returns the number the next create would draw. Purely
// advisory; the create allocates its own under lock.
func (s *LPOService) PreviewNumber(ctx context.Context) (string, error) {
	return s.repo.GenerateNumber(ctx, s.db)
}

// Create allocates a number and stores the LPO as a draft with its first
// history row.
func (s *LPOService) Create(ctx context.Context, userID string, req *CreateLPORequest) (*entity.LPO, error) {
	columns, err := normalizeColumns(req.ColumnStructure)
	if err != nil {
		return nil, err
	}
	if err := validateItems(req.Items, columns); err != nil {
		return nil, err
	}

	vatPct := 5.0
	if req.VATPercentage != nil {
		vatPct = *req.VATPercentage
	}
	items, subtotal, vatAmount, grandTotal := ComputeTotals(req.Items, vatPct)

	lpoDate := time.Now()
	if req.LPODate != "" {
		t, err := time.Parse("2006-01-02", req.LPODate)
		if err != nil {
			return nil, errors.New("invalid lpo_date, expected YYYY-MM-DD")
		}
		lpoDate = t
	}

	l := &entity.LPO{
		Revision:             "00",
		Status:               entity.LPODraft,
		LPODate:              lpoDate,
		QuotationDate:        parseOptionalDate(req.QuotationDate),
		DeliveryDate:         parseOptionalDate(req.DeliveryDate),
		ProjectName:          req.ProjectName,
		ProjectLocation:      req.ProjectLocation,
		Consultant:           req.Consultant,
		SupplierName:         req.SupplierName,
		SupplierAddress:      req.SupplierAddress,
		SupplierTRN:          req.SupplierTRN,
		SupplierTel:          req.SupplierTel,
		SupplierFax:          req.SupplierFax,
		ContactPerson:        req.ContactPerson,
		ContactNumber:        req.ContactNumber,
		QuotationRef:         req.QuotationRef,
		QuotationPDFPath:     req.QuotationPDFPath,
		ColumnStructure:      columns,
		Items:                items,
		Subtotal:             subtotal,
		VATPercentage:        vatPct,
		VATAmount:            vatAmount,
		GrandTotal:           grandTotal,
		PaymentTerms:         req.PaymentTerms,
		DeliveryTerms:        req.DeliveryTerms,
		WarrantyTerms:        req.WarrantyTerms,
		OtherTerms:           req.OtherTerms,
		Notes:                req.Notes,
		InternalNotes:        req.InternalNotes,
		CreatedBy:            userID,
		ExtractionMethod:     orStr(req.ExtractionMethod, "manual"),
		ExtractionConfidence: req.ExtractionConfidence,
		ExtractionNotes:      req.ExtractionNotes,
	}

	// Two creates racing for the same sequence surface as a unique
	// violation; one retry re-reads the max under lock.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			number, err := s.repo.GenerateNumber(ctx, tx)
			if err != nil {
				return err
			}
			l.LPONumber = number
			if err := s.repo.CreateTx(ctx, tx, l); err != nil {
				return err
			}
			return s.repo.AddHistory(ctx, tx, &entity.LPOHistory{
				LPOID:       l.ID,
				Action:      "created",
				NewStatus:   entity.LPODraft,
				Notes:       "LPO created as draft",
				PerformedBy: userID,
			})
		})
		if err == nil {
			break
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
		l.ID = 0
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("lpo created",
		zap.String("lpo_number", l.LPONumber),
		zap.String("supplier", l.SupplierName),
		zap.Float64("grand_total", l.GrandTotal))

	return s.repo.FindByID(ctx, l.ID)
}

// Update edits a draft in place and logs the changed fields. Issued LPOs
// reject edits.
func (s *LPOService) Update(ctx context.Context, id uint, userID string, req *UpdateLPORequest) (*entity.LPO, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsEditable() {
		return nil, fmt.Errorf("LPO %s is %s and can no longer be edited", l.LPONumber, l.Status)
	}

	changes := entity.JSONMap{}

	if req.ColumnStructure != nil {
		columns, err := normalizeColumns(req.ColumnStructure)
		if err != nil {
			return nil, err
		}
		l.ColumnStructure = columns
		changes["column_structure"] = columns
	}
	if req.Items != nil {
		if err := validateItems(req.Items, l.ColumnStructure); err != nil {
			return nil, err
		}
		l.Items = req.Items
		changes["items"] = fmt.Sprintf("%d line items", len(req.Items))
	}
	if req.VATPercentage != nil {
		l.VATPercentage = *req.VATPercentage
		changes["vat_percentage"] = *req.VATPercentage
	}
	if req.Items != nil || req.VATPercentage != nil {
		items, subtotal, vatAmount, grandTotal := ComputeTotals(l.Items, l.VATPercentage)
		l.Items = items
		l.Subtotal = subtotal
		l.VATAmount = vatAmount
		l.GrandTotal = grandTotal
		changes["grand_total"] = grandTotal
	}

	for key, pair := range map[string]struct {
		src *string
		dst *string
	}{
		"project_name":     {req.ProjectName, &l.ProjectName},
		"project_location": {req.ProjectLocation, &l.ProjectLocation},
		"consultant":       {req.Consultant, &l.Consultant},
		"supplier_name":    {req.SupplierName, &l.SupplierName},
		"supplier_address": {req.SupplierAddress, &l.SupplierAddress},
		"supplier_trn":     {req.SupplierTRN, &l.SupplierTRN},
		"supplier_tel":     {req.SupplierTel, &l.SupplierTel},
		"supplier_fax":     {req.SupplierFax, &l.SupplierFax},
		"contact_person":   {req.ContactPerson, &l.ContactPerson},
		"contact_number":   {req.ContactNumber, &l.ContactNumber},
		"quotation_ref":    {req.QuotationRef, &l.QuotationRef},
		"payment_terms":    {req.PaymentTerms, &l.PaymentTerms},
		"delivery_terms":   {req.DeliveryTerms, &l.DeliveryTerms},
		"warranty_terms":   {req.WarrantyTerms, &l.WarrantyTerms},
		"other_terms":      {req.OtherTerms, &l.OtherTerms},
		"notes":            {req.Notes, &l.Notes},
		"internal_notes":   {req.InternalNotes, &l.InternalNotes},
	} {
		if pair.src != nil {
			*pair.dst = *pair.src
			changes[key] = *pair.src
		}
	}

	if req.LPODate != nil {
		t, err := time.Parse("2006-01-02", *req.LPODate)
		if err != nil {
			return nil, errors.New("invalid lpo_date, expected YYYY-MM-DD")
		}
		l.LPODate = t
		changes["lpo_date"] = *req.LPODate
	}
	if req.QuotationDate != nil {
		l.QuotationDate = parseOptionalDate(*req.QuotationDate)
		changes["quotation_date"] = *req.QuotationDate
	}
	if req.DeliveryDate != nil {
		l.DeliveryDate = parseOptionalDate(*req.DeliveryDate)
		changes["delivery_date"] = *req.DeliveryDate
	}

	if len(changes) == 0 {
		return l, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Save(l).Error; err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, tx, &entity.LPOHistory{
			LPOID:       l.ID,
			Action:      "updated",
			OldStatus:   l.Status,
			NewStatus:   l.Status,
			Changes:     changes,
			PerformedBy: userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, l.ID)
}

// ChangeStatus moves the LPO along its lifecycle and stamps issued_at on
// issue.
func (s *LPOService) ChangeStatus(ctx context.Context, id uint, userID string, req *ChangeStatusRequest) (*entity.LPO, error) {
	if !isValidLPOStatus(req.Status) {
		return nil, fmt.Errorf("invalid status %q", req.Status)
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == req.Status {
		return l, nil
	}
	if req.Status == entity.LPOIssued && !l.CanBeIssued() {
		return nil, fmt.Errorf("LPO %s cannot be issued from status %s with %d items", l.LPONumber, l.Status, l.ItemCount())
	}

	oldStatus := l.Status
	l.Status = req.Status
	if req.Status == entity.LPOIssued {
		now := time.Now()
		l.IssuedAt = &now
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Save(l).Error; err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, tx, &entity.LPOHistory{
			LPOID:       l.ID,
			Action:      req.Status,
			OldStatus:   oldStatus,
			NewStatus:   req.Status,
			Notes:       req.Notes,
			PerformedBy: userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, l.ID)
}

// Cancel soft-deletes by flipping the status; the row and its history stay.
func (s *LPOService) Cancel(ctx context.Context, id uint, userID, notes string) error {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if l.Status == entity.LPOCancelled {
		return nil
	}

	oldStatus := l.Status
	l.Status = entity.LPOCancelled

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Save(l).Error; err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, tx, &entity.LPOHistory{
			LPOID:       l.ID,
			Action:      "cancelled",
			OldStatus:   oldStatus,
			NewStatus:   entity.LPOCancelled,
			Notes:       orStr(notes, "LPO cancelled"),
			PerformedBy: userID,
		})
	})
}

func (s *LPOService) History(ctx context.Context, id uint) ([]entity.LPOHistory, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.History, nil
}

// ComputeTotals derives line totals and the VAT summary from the item rows.
// Arithmetic runs on decimals; the two-digit rounding happens once at each
// aggregate, never per line before summation.
func ComputeTotals(items []map[string]interface{}, vatPct float64) (entity.JSONList, float64, float64, float64) {
	subtotal := decimal.Zero
	vatRate := decimal.NewFromFloat(vatPct).Div(decimal.NewFromInt(100))

	out := make(entity.JSONList, 0, len(items))
	for i, item := range items {
		row := make(map[string]interface{}, len(item)+3)
		for k, v := range item {
			row[k] = v
		}

		qty := decimalFrom(firstItemValue(item, "QTY", "qty"))
		rate := decimalFrom(firstItemValue(item, "RATE", "rate"))
		line := qty.Mul(rate)
		subtotal = subtotal.Add(line)

		lineVAT := line.Mul(vatRate)
		row["number"] = i + 1
		row["total_amount"], _ = line.Round(2).Float64()
		row["vat_amount"], _ = lineVAT.Round(2).Float64()
		out = append(out, row)
	}

	vatAmount := subtotal.Mul(vatRate).Round(2)
	sub := subtotal.Round(2)
	grand := sub.Add(vatAmount)

	subF, _ := sub.Float64()
	vatF, _ := vatAmount.Float64()
	grandF, _ := grand.Float64()
	return out, subF, vatF, grandF
}

func normalizeColumns(columns []string) (entity.StringList, error) {
	if len(columns) == 0 {
		return nil, errors.New("column_structure must not be empty")
	}
	out := make(entity.StringList, 0, len(columns))
	for _, c := range columns {
		label := strings.ToUpper(strings.TrimSpace(c))
		if !entity.IsValidLPOColumn(label) {
			return nil, fmt.Errorf("unknown column %q, allowed: %s", c, strings.Join(entity.LPOColumns, ", "))
		}
		out = append(out, label)
	}
	return out, nil
}

// validateItems rejects rows carrying keys outside the chosen layout. Derived
// keys (number, vat_amount, total_amount) are always permitted since the
// totals pass writes them back.
func validateItems(items []map[string]interface{}, columns []string) error {
	if len(items) == 0 {
		return errors.New("items must not be empty")
	}
	allowed := make(map[string]struct{}, len(columns)+len(lpoDerivedKeys))
	for _, c := range columns {
		allowed[strings.ToUpper(c)] = struct{}{}
	}
	for _, k := range lpoDerivedKeys {
		allowed[strings.ToUpper(k)] = struct{}{}
	}
	for i, item := range items {
		for k := range item {
			if _, ok := allowed[strings.ToUpper(k)]; !ok {
				return fmt.Errorf("item %d has key %q outside the chosen columns", i+1, k)
			}
		}
	}
	return nil
}

func decimalFrom(v interface{}) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	f, err := cvt.Float64E(v)
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func firstItemValue(item map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := item[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func isValidLPOStatus(s string) bool {
	switch s {
	case entity.LPODraft, entity.LPOIssued, entity.LPOAcknowledged, entity.LPOCompleted, entity.LPOCancelled:
		return true
	}
	return false
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}

func parseOptionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

func orStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
