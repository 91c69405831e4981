package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
)

// FileRepository persists uploaded document records.
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.File, int64, error) {
	var items []entity.File
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.File{})

	if t := filters["file_type"]; t != "" {
		query = query.Where("file_type = ?", t)
	}
	if s := filters["processing_status"]; s != "" {
		query = query.Where("processing_status = ?", s)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("uploaded_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *FileRepository) FindByID(ctx context.Context, id uint) (*entity.File, error) {
	var f entity.File
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Create(ctx context.Context, f *entity.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FileRepository) Update(ctx context.Context, f *entity.File) error {
	return r.db.WithContext(ctx).Save(f).Error
}

// MarkProcessing flips the record to processing before handing it off.
func (r *FileRepository) MarkProcessing(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&entity.File{}).
		Where("id = ?", id).
		Update("processing_status", entity.FileProcessing).Error
}

// MarkCompleted stores the extraction result alongside the record.
func (r *FileRepository) MarkCompleted(ctx context.Context, id uint, data entity.JSONMap, confidence float64) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.File{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status":     entity.FileCompleted,
			"extracted_data":        data,
			"extraction_confidence": confidence,
			"processed_at":          &now,
		}).Error
}

// MarkFailed records the failure reason so the upload can be retried.
func (r *FileRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.File{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status": entity.FileFailed,
			"error_message":     reason,
			"processed_at":      &now,
		}).Error
}

func (r *FileRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.File{}).Error
}
