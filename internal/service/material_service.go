package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"go.uber.org/zap"
)

// MaterialService manages submittals and their revision chains.
type MaterialService struct {
	repo   *repository.MaterialRepository
	engine *engine.Engine
	logger *zap.Logger
}

func NewMaterialService(repo *repository.MaterialRepository, eng *engine.Engine, logger *zap.Logger) *MaterialService {
	return &MaterialService{repo: repo, engine: eng, logger: logger}
}

// CreateMaterialRequest carries a new submittal.
type CreateMaterialRequest struct {
	MaterialType     string `json:"material_type" binding:"required"`
	Description      string `json:"description"`
	ApprovalStatus   string `json:"approval_status"`
	ApprovalDate     string `json:"approval_date"`
	ApprovalNotes    string `json:"approval_notes"`
	SubmittalRef     string `json:"submittal_ref"`
	SpecificationRef string `json:"specification_ref"`
	DocumentPath     string `json:"document_path"`
}

// UpdateMaterialRequest carries partial edits; nil fields stay untouched.
type UpdateMaterialRequest struct {
	MaterialType     *string `json:"material_type"`
	Description      *string `json:"description"`
	ApprovalStatus   *string `json:"approval_status"`
	ApprovalDate     *string `json:"approval_date"`
	ApprovalNotes    *string `json:"approval_notes"`
	SubmittalRef     *string `json:"submittal_ref"`
	SpecificationRef *string `json:"specification_ref"`
	DocumentPath     *string `json:"document_path"`
}

func (s *MaterialService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Material, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *MaterialService) Get(ctx context.Context, id uint) (*entity.Material, error) {
	return s.repo.FindByID(ctx, id)
}

// RevisionChain walks back through previous submittals, newest first.
func (s *MaterialService) RevisionChain(ctx context.Context, id uint) ([]entity.Material, error) {
	return s.repo.FindRevisionChain(ctx, id)
}

func (s *MaterialService) Create(ctx context.Context, userID string, req *CreateMaterialRequest) (*entity.Material, error) {
	status := req.ApprovalStatus
	if status == "" {
		status = entity.ApprovalPending
	}

	bag := map[string]interface{}{
		"material_type":   req.MaterialType,
		"approval_status": status,
	}
	if req.ApprovalDate != "" {
		bag["date_submitted"] = req.ApprovalDate
	}
	res := s.engine.Validator().Validate(ctx, engine.RecordSubmittal, bag)
	if !res.IsValid {
		return nil, &ValidationError{Errors: res.Errors, Warnings: res.Warnings}
	}

	m := &entity.Material{
		MaterialType:     req.MaterialType,
		Description:      req.Description,
		ApprovalStatus:   status,
		ApprovalNotes:    req.ApprovalNotes,
		SubmittalRef:     req.SubmittalRef,
		SpecificationRef: req.SpecificationRef,
		DocumentPath:     req.DocumentPath,
		CreatedBy:        userID,
		UpdatedBy:        userID,
	}
	if t := parseOptionalDate(req.ApprovalDate); t != nil {
		m.ApprovalDate = t
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("material created",
		zap.Uint("id", m.ID),
		zap.String("material_type", m.MaterialType))
	return m, nil
}

// Revise opens a new submittal revision chained to the given one, used after
// a Revise & Resubmit verdict.
func (s *MaterialService) Revise(ctx context.Context, id uint, userID string, req *CreateMaterialRequest) (*entity.Material, error) {
	prev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rev := &entity.Material{
		MaterialType:        prev.MaterialType,
		Description:         prev.Description,
		ApprovalStatus:      entity.ApprovalPending,
		SubmittalRef:        req.SubmittalRef,
		SpecificationRef:    prev.SpecificationRef,
		RevisionNumber:      prev.RevisionNumber + 1,
		PreviousSubmittalID: &prev.ID,
		DocumentPath:        req.DocumentPath,
		CreatedBy:           userID,
		UpdatedBy:           userID,
	}
	if req.Description != "" {
		rev.Description = req.Description
	}
	if req.SpecificationRef != "" {
		rev.SpecificationRef = req.SpecificationRef
	}

	if err := s.repo.Create(ctx, rev); err != nil {
		return nil, err
	}
	s.logger.Info("material revised",
		zap.Uint("previous_id", prev.ID),
		zap.Uint("revision_id", rev.ID),
		zap.Int("revision", rev.RevisionNumber))
	return rev, nil
}

func (s *MaterialService) Update(ctx context.Context, id uint, userID string, req *UpdateMaterialRequest) (*entity.Material, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ApprovalStatus != nil {
		if !entity.IsValidApprovalStatus(*req.ApprovalStatus) {
			return nil, fmt.Errorf("invalid approval status %q", *req.ApprovalStatus)
		}
		m.ApprovalStatus = *req.ApprovalStatus
		if *req.ApprovalStatus == entity.ApprovalApproved && m.ApprovalDate == nil {
			now := time.Now()
			m.ApprovalDate = &now
		}
	}
	if req.MaterialType != nil {
		m.MaterialType = *req.MaterialType
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.ApprovalDate != nil {
		m.ApprovalDate = parseOptionalDate(*req.ApprovalDate)
	}
	if req.ApprovalNotes != nil {
		m.ApprovalNotes = *req.ApprovalNotes
	}
	if req.SubmittalRef != nil {
		m.SubmittalRef = *req.SubmittalRef
	}
	if req.SpecificationRef != nil {
		m.SpecificationRef = *req.SpecificationRef
	}
	if req.DocumentPath != nil {
		m.DocumentPath = *req.DocumentPath
	}
	m.UpdatedBy = userID

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
