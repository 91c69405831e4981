package repository

import (
	"context"
	"errors"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseOrderRepository persists purchase orders.
type PurchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

func (r *PurchaseOrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if materialID := filters["material_id"]; materialID != "" {
		query = query.Where("material_id = ?", materialID)
	}
	if status := filters["po_status"]; status != "" {
		query = query.Where("po_status = ?", status)
	}
	if supplier := filters["supplier_name"]; supplier != "" {
		query = query.Where("supplier_name ILIKE ?", "%"+supplier+"%")
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_ref ILIKE ? OR supplier_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Material").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *PurchaseOrderRepository) FindByID(ctx context.Context, id uint) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Material").
		Preload("Payments").
		Preload("Deliveries").
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepository) FindByRef(ctx context.Context, ref string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).Where("po_ref = ?", ref).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// FindByIDForUpdate locks the PO row for the duration of the surrounding
// transaction. Used by the payment budget check so two invoices against the
// same PO serialize.
func (r *PurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

func (r *PurchaseOrderRepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(po).Error
}

func (r *PurchaseOrderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deletePurchaseOrderCascade(tx, id)
	})
}

// deletePurchaseOrderCascade removes a PO with its payments, deliveries and
// attached file rows. The material repository reuses it to walk the ownership
// chain down from a material.
func deletePurchaseOrderCascade(tx *gorm.DB, id uint) error {
	payments := tx.Session(&gorm.Session{NewDB: true}).
		Model(&entity.Payment{}).Select("id").Where("po_id = ?", id)
	deliveries := tx.Session(&gorm.Session{NewDB: true}).
		Model(&entity.Delivery{}).Select("id").Where("po_id = ?", id)
	if err := tx.
		Where("purchase_order_id = ? OR payment_id IN (?) OR delivery_id IN (?)", id, payments, deliveries).
		Delete(&entity.File{}).Error; err != nil {
		return err
	}
	if err := tx.Where("po_id = ?", id).Delete(&entity.Payment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("po_id = ?", id).Delete(&entity.Delivery{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&entity.PurchaseOrder{}).Error
}
