package repository

import (
	"context"
	"errors"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
)

// PaymentRepository persists payments.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Payment, int64, error) {
	var items []entity.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Payment{})

	if poID := filters["po_id"]; poID != "" {
		query = query.Where("po_id = ?", poID)
	}
	if status := filters["payment_status"]; status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("payment_ref ILIKE ? OR invoice_ref ILIKE ?", "%"+search+"%", "%"+search+"%")
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

func (r *PaymentRepository) FindByID(ctx context.Context, id uint) (*entity.Payment, error) {
	var p entity.Payment
	err := r.db.WithContext(ctx).
		Preload("PurchaseOrder").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) FindByPO(ctx context.Context, poID uint) ([]entity.Payment, error) {
	var items []entity.Payment
	err := r.db.WithContext(ctx).
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// SumByPO totals payment amounts already recorded against a PO, optionally
// excluding one payment (used when re-validating an update). A payment counts
// at its paid amount once anything was settled, otherwise at its invoiced
// total.
func (r *PaymentRepository) SumByPO(ctx context.Context, tx *gorm.DB, poID uint, excludeID uint) (float64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var total float64
	query := db.WithContext(ctx).
		Model(&entity.Payment{}).
		Where("po_id = ?", poID)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.
		Select("COALESCE(SUM(CASE WHEN paid_amount > 0 THEN paid_amount ELSE total_amount END), 0)").
		Scan(&total).Error
	return total, err
}

func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) CreateTx(ctx context.Context, tx *gorm.DB, p *entity.Payment) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) Update(ctx context.Context, p *entity.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PaymentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Payment{}).Error
}
