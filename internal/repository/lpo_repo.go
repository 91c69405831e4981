package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LPORepository persists local purchase orders and their history trail.
type LPORepository struct {
	db *gorm.DB
}

func NewLPORepository(db *gorm.DB) *LPORepository {
	return &LPORepository{db: db}
}

func (r *LPORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.LPO, int64, error) {
	var items []entity.LPO
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.LPO{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if supplier := filters["supplier_name"]; supplier != "" {
		query = query.Where("supplier_name ILIKE ?", "%"+supplier+"%")
	}
	if search := filters["search"]; search != "" {
		query = query.Where("lpo_number ILIKE ? OR supplier_name ILIKE ?", "%"+search+"%", "%"+search+"%")
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

func (r *LPORepository) FindByID(ctx context.Context, id uint) (*entity.LPO, error) {
	var l entity.LPO
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("performed_at ASC")
		}).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LPORepository) FindByNumber(ctx context.Context, number string) (*entity.LPO, error) {
	var l entity.LPO
	err := r.db.WithContext(ctx).Where("lpo_number = ?", number).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// GenerateNumber allocates the next LPO/PKP/YYYY/NNNN number for the current
// year. Postgres cannot lock an aggregate, so the year's highest row is
// locked instead; an empty year holds no lock, which is what the caller's
// unique-index retry covers.
func (r *LPORepository) GenerateNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	year := time.Now().Format("2006")
	prefix := "LPO/PKP/" + year + "/"

	var last []entity.LPO
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("lpo_number LIKE ?", prefix+"%").
		Order("lpo_number DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return "", err
	}

	seq := 0
	if len(last) > 0 {
		fmt.Sscanf(last[0].LPONumber, "LPO/PKP/"+year+"/%04d", &seq)
	}
	seq++

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

func (r *LPORepository) CreateTx(ctx context.Context, tx *gorm.DB, l *entity.LPO) error {
	return tx.WithContext(ctx).Create(l).Error
}

func (r *LPORepository) Update(ctx context.Context, l *entity.LPO) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LPORepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lpo_id = ?", id).Delete(&entity.LPOHistory{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.LPO{}).Error
	})
}

// AddHistory appends one audit row inside the caller's transaction.
func (r *LPORepository) AddHistory(ctx context.Context, tx *gorm.DB, h *entity.LPOHistory) error {
	if h.PerformedAt.IsZero() {
		h.PerformedAt = time.Now()
	}
	return tx.WithContext(ctx).Create(h).Error
}
