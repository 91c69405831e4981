package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/pipeline"
	"github.com/pkpgroup/matdash/internal/repository"
)

// SuggestionHandler serves the AI review queue.
type SuggestionHandler struct {
	repos *repository.Repositories
	pipe  *pipeline.Pipeline
}

func NewSuggestionHandler(repos *repository.Repositories, pipe *pipeline.Pipeline) *SuggestionHandler {
	return &SuggestionHandler{repos: repos, pipe: pipe}
}

func (h *SuggestionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":       c.Query("status"),
		"target_table": c.Query("target_table"),
	}

	items, total, err := h.repos.Suggestion.FindAll(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list suggestions: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *SuggestionHandler) Pending(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.repos.Suggestion.FindAll(c.Request.Context(), page, pageSize, map[string]string{
		"status": entity.SuggestionPending,
	})
	if err != nil {
		InternalError(c, "failed to list pending suggestions: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *SuggestionHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s, err := h.repos.Suggestion.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, s)
}

// Approve applies a pending suggestion to its target record.
func (h *SuggestionHandler) Approve(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		ReviewNotes string `json:"review_notes"`
	}
	_ = c.ShouldBindJSON(&req)

	s, err := h.repos.Suggestion.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if s.Status != entity.SuggestionPending {
		BadRequest(c, "suggestion is already "+s.Status)
		return
	}

	reviewer := GetUserID(c)
	if reviewer == "Manual" {
		reviewer = "User"
	}
	if err := h.pipe.ApplySuggestion(c.Request.Context(), s, false, reviewer, req.ReviewNotes); err != nil {
		var budgetErr *pipeline.BudgetViolationError
		if errors.As(err, &budgetErr) {
			BadRequest(c, budgetErr.Message)
			return
		}
		InternalError(c, "failed to apply suggestion: "+err.Error())
		return
	}
	Success(c, s)
}

// Reject closes a pending suggestion without touching its target.
func (h *SuggestionHandler) Reject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		ReviewNotes string `json:"review_notes"`
	}
	_ = c.ShouldBindJSON(&req)

	s, err := h.repos.Suggestion.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if s.Status != entity.SuggestionPending {
		BadRequest(c, "suggestion is already "+s.Status)
		return
	}

	now := time.Now()
	s.Status = entity.SuggestionRejected
	s.ReviewedBy = GetUserID(c)
	if s.ReviewedBy == "Manual" {
		s.ReviewedBy = "User"
	}
	s.ReviewedAt = &now
	s.ReviewNotes = req.ReviewNotes

	if err := h.repos.Suggestion.Update(c.Request.Context(), s); err != nil {
		InternalError(c, "failed to reject suggestion: "+err.Error())
		return
	}
	Success(c, s)
}
