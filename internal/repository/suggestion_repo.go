package repository

import (
	"context"
	"errors"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
)

// SuggestionRepository persists AI suggestions awaiting review.
type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

func (r *SuggestionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AISuggestion, int64, error) {
	var items []entity.AISuggestion
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.AISuggestion{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if table := filters["target_table"]; table != "" {
		query = query.Where("target_table = ?", table)
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

func (r *SuggestionRepository) FindByID(ctx context.Context, id uint) (*entity.AISuggestion, error) {
	var s entity.AISuggestion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SuggestionRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.AISuggestion{}).
		Where("status = ?", entity.SuggestionPending).
		Count(&n).Error
	return n, err
}

func (r *SuggestionRepository) Create(ctx context.Context, s *entity.AISuggestion) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SuggestionRepository) Update(ctx context.Context, s *entity.AISuggestion) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *SuggestionRepository) UpdateTx(ctx context.Context, tx *gorm.DB, s *entity.AISuggestion) error {
	return tx.WithContext(ctx).Save(s).Error
}

func (r *SuggestionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.AISuggestion{}).Error
}
