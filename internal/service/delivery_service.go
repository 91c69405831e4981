package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"go.uber.org/zap"
)

// DeliveryService manages deliveries against POs. Reads recompute the delay
// flags against the current date so a list is never stale.
type DeliveryService struct {
	repo   *repository.DeliveryRepository
	pos    *repository.PurchaseOrderRepository
	engine *engine.Engine
	logger *zap.Logger
}

func NewDeliveryService(repo *repository.DeliveryRepository, pos *repository.PurchaseOrderRepository, eng *engine.Engine, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{repo: repo, pos: pos, engine: eng, logger: logger}
}

// CreateDeliveryRequest carries a new delivery entry.
type CreateDeliveryRequest struct {
	POID                 uint    `json:"po_id" binding:"required"`
	ExpectedDeliveryDate string  `json:"expected_delivery_date"`
	ActualDeliveryDate   string  `json:"actual_delivery_date"`
	DeliveryStatus       string  `json:"delivery_status"`
	OrderedQuantity      float64 `json:"ordered_quantity"`
	DeliveredQuantity    float64 `json:"delivered_quantity"`
	Unit                 string  `json:"unit"`
	DeliveryPercentage   float64 `json:"delivery_percentage"`
	TrackingNumber       string  `json:"tracking_number"`
	Carrier              string  `json:"carrier"`
	DeliveryLocation     string  `json:"delivery_location"`
	ReceivedBy           string  `json:"received_by"`
	DelayReason          string  `json:"delay_reason"`
	Notes                string  `json:"notes"`
	DeliveryNotePath     string  `json:"delivery_note_path"`
	Force                bool    `json:"force"`
}

// UpdateDeliveryRequest carries partial edits; nil fields stay untouched.
type UpdateDeliveryRequest struct {
	ExpectedDeliveryDate *string  `json:"expected_delivery_date"`
	ActualDeliveryDate   *string  `json:"actual_delivery_date"`
	DeliveryStatus       *string  `json:"delivery_status"`
	OrderedQuantity      *float64 `json:"ordered_quantity"`
	DeliveredQuantity    *float64 `json:"delivered_quantity"`
	Unit                 *string  `json:"unit"`
	DeliveryPercentage   *float64 `json:"delivery_percentage"`
	TrackingNumber       *string  `json:"tracking_number"`
	Carrier              *string  `json:"carrier"`
	DeliveryLocation     *string  `json:"delivery_location"`
	ReceivedBy           *string  `json:"received_by"`
	DelayReason          *string  `json:"delay_reason"`
	Notes                *string  `json:"notes"`
	DeliveryNotePath     *string  `json:"delivery_note_path"`
}

func (s *DeliveryService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Delivery, int64, error) {
	items, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	for i := range items {
		items[i].CheckDelay(now)
	}
	return items, total, nil
}

func (s *DeliveryService) Get(ctx context.Context, id uint) (*entity.Delivery, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.CheckDelay(time.Now())
	return d, nil
}

// Delayed returns deliveries past their expected date, most overdue first.
func (s *DeliveryService) Delayed(ctx context.Context) ([]entity.Delivery, error) {
	items, _, err := s.repo.FindAll(ctx, 1, 1000, map[string]string{})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var delayed []entity.Delivery
	for i := range items {
		items[i].CheckDelay(now)
		if items[i].IsDelayed {
			delayed = append(delayed, items[i])
		}
	}
	sort.Slice(delayed, func(i, j int) bool {
		return delayed[i].DelayDays > delayed[j].DelayDays
	})
	return delayed, nil
}

// Pending returns deliveries not yet completed.
func (s *DeliveryService) Pending(ctx context.Context) ([]entity.Delivery, error) {
	items, _, err := s.repo.FindAll(ctx, 1, 1000, map[string]string{})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var pending []entity.Delivery
	for i := range items {
		if items[i].DeliveryStatus == entity.DeliveryStatusCompleted {
			continue
		}
		items[i].CheckDelay(now)
		pending = append(pending, items[i])
	}
	return pending, nil
}

func (s *DeliveryService) Create(ctx context.Context, userID string, req *CreateDeliveryRequest) (*entity.Delivery, error) {
	po, err := s.pos.FindByID(ctx, req.POID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("purchase order %d not found", req.POID)
		}
		return nil, err
	}

	status := orStr(req.DeliveryStatus, entity.DeliveryStatusPending)
	bag := map[string]interface{}{
		"lpo_id":                 req.POID,
		"po_id":                  req.POID,
		"delivery_date":          orStr(req.ActualDeliveryDate, req.ExpectedDeliveryDate),
		"expected_delivery_date": req.ExpectedDeliveryDate,
		"status":                 status,
		"ordered_quantity":       req.OrderedQuantity,
		"delivered_quantity":     req.DeliveredQuantity,
		"delivery_percentage":    req.DeliveryPercentage,
	}
	if po.PODate != nil {
		bag["release_date"] = po.PODate.Format("2006-01-02")
	}

	result, err := s.engine.Process(ctx, engine.RecordDelivery, bag, engine.ProcessOptions{
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

	d := &entity.Delivery{
		POID:                 req.POID,
		ExpectedDeliveryDate: parseOptionalDate(req.ExpectedDeliveryDate),
		ActualDeliveryDate:   parseOptionalDate(req.ActualDeliveryDate),
		DeliveryStatus:       status,
		OrderedQuantity:      req.OrderedQuantity,
		DeliveredQuantity:    req.DeliveredQuantity,
		Unit:                 req.Unit,
		DeliveryPercentage:   req.DeliveryPercentage,
		TrackingNumber:       req.TrackingNumber,
		Carrier:              req.Carrier,
		DeliveryLocation:     req.DeliveryLocation,
		ReceivedBy:           req.ReceivedBy,
		DelayReason:          req.DelayReason,
		Notes:                req.Notes,
		DeliveryNotePath:     req.DeliveryNotePath,
		CreatedBy:            userID,
		UpdatedBy:            userID,
	}
	d.CheckDelay(time.Now())

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("delivery created",
		zap.Uint("id", d.ID),
		zap.Uint("po_id", d.POID),
		zap.String("status", d.DeliveryStatus))
	return d, nil
}

func (s *DeliveryService) Update(ctx context.Context, id uint, userID string, req *UpdateDeliveryRequest) (*entity.Delivery, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DeliveryStatus != nil {
		if !entity.IsValidDeliveryStatus(*req.DeliveryStatus) {
			return nil, fmt.Errorf("invalid delivery status %q", *req.DeliveryStatus)
		}
		d.DeliveryStatus = *req.DeliveryStatus
	}
	if req.ExpectedDeliveryDate != nil {
		d.ExpectedDeliveryDate = parseOptionalDate(*req.ExpectedDeliveryDate)
	}
	if req.ActualDeliveryDate != nil {
		d.ActualDeliveryDate = parseOptionalDate(*req.ActualDeliveryDate)
	}
	if req.OrderedQuantity != nil {
		d.OrderedQuantity = *req.OrderedQuantity
	}
	if req.DeliveredQuantity != nil {
		d.DeliveredQuantity = *req.DeliveredQuantity
	}
	if req.Unit != nil {
		d.Unit = *req.Unit
	}
	if req.DeliveryPercentage != nil {
		if *req.DeliveryPercentage < 0 || *req.DeliveryPercentage > 100 {
			return nil, fmt.Errorf("delivery_percentage must be between 0 and 100")
		}
		d.DeliveryPercentage = *req.DeliveryPercentage
	}
	if req.TrackingNumber != nil {
		d.TrackingNumber = *req.TrackingNumber
	}
	if req.Carrier != nil {
		d.Carrier = *req.Carrier
	}
	if req.DeliveryLocation != nil {
		d.DeliveryLocation = *req.DeliveryLocation
	}
	if req.ReceivedBy != nil {
		d.ReceivedBy = *req.ReceivedBy
	}
	if req.DelayReason != nil {
		d.DelayReason = *req.DelayReason
	}
	if req.Notes != nil {
		d.Notes = *req.Notes
	}
	if req.DeliveryNotePath != nil {
		d.DeliveryNotePath = *req.DeliveryNotePath
	}
	d.CheckDelay(time.Now())
	d.UpdatedBy = userID

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DeliveryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
