package repository

import (
	"context"
	"errors"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
)

// DeliveryRepository persists deliveries.
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Delivery, int64, error) {
	var items []entity.Delivery
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Delivery{})

	if poID := filters["po_id"]; poID != "" {
		query = query.Where("po_id = ?", poID)
	}
	if status := filters["delivery_status"]; status != "" {
		query = query.Where("delivery_status = ?", status)
	}
	if delayed := filters["is_delayed"]; delayed != "" {
		query = query.Where("is_delayed = ?", delayed == "true")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("PurchaseOrder").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id uint) (*entity.Delivery, error) {
	var d entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("PurchaseOrder").
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DeliveryRepository) FindByPO(ctx context.Context, poID uint) ([]entity.Delivery, error) {
	var items []entity.Delivery
	err := r.db.WithContext(ctx).
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByChecksum looks up a delivery previously written from the same
// extraction payload. Used to keep pipeline replays idempotent.
func (r *DeliveryRepository) FindByChecksum(ctx context.Context, checksum string) (*entity.Delivery, error) {
	var d entity.Delivery
	err := r.db.WithContext(ctx).Where("extraction_checksum = ?", checksum).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DeliveryRepository) Create(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DeliveryRepository) Update(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DeliveryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Delivery{}).Error
}
