package repository

import (
	"context"
	"errors"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
)

// MaterialRepository persists material submittals.
type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Material, int64, error) {
	var items []entity.Material
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Material{})

	if t := filters["material_type"]; t != "" {
		query = query.Where("material_type = ?", t)
	}
	if s := filters["approval_status"]; s != "" {
		query = query.Where("approval_status = ?", s)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("material_type ILIKE ? OR submittal_ref ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *MaterialRepository) FindByID(ctx context.Context, id uint) (*entity.Material, error) {
	var m entity.Material
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindRevisionChain walks PreviousSubmittalID links back from the given
// material, newest first.
func (r *MaterialRepository) FindRevisionChain(ctx context.Context, id uint) ([]entity.Material, error) {
	var chain []entity.Material
	cur := id
	for {
		m, err := r.FindByID(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *m)
		if m.PreviousSubmittalID == nil {
			return chain, nil
		}
		cur = *m.PreviousSubmittalID
	}
}

func (r *MaterialRepository) Create(ctx context.Context, m *entity.Material) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MaterialRepository) Update(ctx context.Context, m *entity.Material) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Delete removes the material together with its purchase orders and, through
// them, their payments, deliveries and file rows.
func (r *MaterialRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poIDs []uint
		if err := tx.Model(&entity.PurchaseOrder{}).
			Where("material_id = ?", id).
			Pluck("id", &poIDs).Error; err != nil {
			return err
		}
		for _, poID := range poIDs {
			if err := deletePurchaseOrderCascade(tx, poID); err != nil {
				return err
			}
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.File{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Material{}).Error
	})
}
