package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/pipeline"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/service"
)

// WebhookHandler receives the extraction workflow's callbacks.
type WebhookHandler struct {
	pipe    *pipeline.Pipeline
	repos   *repository.Repositories
	uploads *service.UploadService
}

func NewWebhookHandler(pipe *pipeline.Pipeline, repos *repository.Repositories, uploads *service.UploadService) *WebhookHandler {
	return &WebhookHandler{pipe: pipe, repos: repos, uploads: uploads}
}

// extractionRequest is the wire shape of one extraction result. Exactly one
// of the id fields is set, matching the endpoint called.
type extractionRequest struct {
	DeliveryID      uint                   `json:"delivery_id"`
	PurchaseOrderID uint                   `json:"purchase_order_id"`
	PaymentID       uint                   `json:"payment_id"`
	Status          string                 `json:"extraction_status" binding:"required"`
	Confidence      float64                `json:"extraction_confidence"`
	ExtractedData   map[string]interface{} `json:"extracted_data"`
	DocumentPath    string                 `json:"document_path"`
	ErrorMessage    string                 `json:"error_message"`
	AIModel         string                 `json:"ai_model"`
}

func (h *WebhookHandler) Health(c *gin.Context) {
	Success(c, gin.H{"status": "ok", "service": "matdash"})
}

func (h *WebhookHandler) DeliveryExtraction(c *gin.Context) {
	h.runExtraction(c, pipeline.TargetDelivery)
}

func (h *WebhookHandler) POExtraction(c *gin.Context) {
	h.runExtraction(c, pipeline.TargetPO)
}

func (h *WebhookHandler) InvoiceExtraction(c *gin.Context) {
	h.runExtraction(c, pipeline.TargetPayment)
}

func (h *WebhookHandler) runExtraction(c *gin.Context, kind string) {
	var req extractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var targetID uint
	switch kind {
	case pipeline.TargetDelivery:
		targetID = req.DeliveryID
	case pipeline.TargetPO:
		targetID = req.PurchaseOrderID
	case pipeline.TargetPayment:
		targetID = req.PaymentID
	}
	if targetID == 0 {
		BadRequest(c, "target id is required")
		return
	}

	msg := &pipeline.ExtractionMessage{
		TargetKind:   kind,
		TargetID:     targetID,
		Status:       req.Status,
		Confidence:   req.Confidence,
		Extracted:    req.ExtractedData,
		DocumentPath: req.DocumentPath,
		ErrorMessage: req.ErrorMessage,
		AIModel:      req.AIModel,
	}

	outcome, err := h.pipe.ProcessExtraction(c.Request.Context(), msg)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrBusy):
			Conflict(c, "extraction already in progress for this record")
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "target record not found")
		default:
			InternalError(c, "extraction processing failed: "+err.Error())
		}
		return
	}
	Success(c, outcome)
}

// suggestionRequest lets the workflow file a suggestion directly, e.g. for a
// record it wants created rather than updated.
type suggestionRequest struct {
	TargetTable      string         `json:"target_table" binding:"required"`
	TargetID         *uint          `json:"target_id"`
	ActionType       string         `json:"action_type" binding:"required"`
	ConfidenceScore  float64        `json:"confidence_score"`
	SuggestedData    entity.JSONMap `json:"suggested_data" binding:"required"`
	CurrentData      entity.JSONMap `json:"current_data"`
	AIModel          string         `json:"ai_model"`
	AIReasoning      string         `json:"ai_reasoning"`
	ExtractionSource string         `json:"extraction_source"`
}

// CreateSuggestion files a suggestion and auto-applies it when the score
// clears the bar. A failed auto-apply leaves it pending for a human.
func (h *WebhookHandler) CreateSuggestion(c *gin.Context) {
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !entity.IsValidSuggestionTarget(req.TargetTable) {
		BadRequest(c, "invalid target_table "+req.TargetTable)
		return
	}
	if req.ActionType != entity.ActionCreate && req.ActionType != entity.ActionUpdate {
		BadRequest(c, "invalid action_type "+req.ActionType)
		return
	}
	if req.ActionType == entity.ActionUpdate && req.TargetID == nil {
		BadRequest(c, "target_id is required for update suggestions")
		return
	}

	s := &entity.AISuggestion{
		TargetTable:      req.TargetTable,
		TargetID:         req.TargetID,
		ActionType:       req.ActionType,
		ConfidenceScore:  req.ConfidenceScore,
		SuggestedData:    req.SuggestedData,
		CurrentData:      req.CurrentData,
		AIModel:          req.AIModel,
		AIReasoning:      req.AIReasoning,
		ExtractionSource: orDefaultStr(req.ExtractionSource, "n8n_webhook"),
		Status:           entity.SuggestionPending,
	}
	if err := h.repos.Suggestion.Create(c.Request.Context(), s); err != nil {
		InternalError(c, "failed to create suggestion: "+err.Error())
		return
	}

	autoApplied := false
	if req.ConfidenceScore >= h.pipe.AutoThreshold() {
		if err := h.pipe.ApplySuggestion(c.Request.Context(), s, true, "", ""); err == nil {
			autoApplied = true
		}
	}

	Created(c, gin.H{
		"suggestion":   s,
		"auto_applied": autoApplied,
	})
}

// PendingReviews returns the review queue the workflow polls to decide
// whether to nag a human.
func (h *WebhookHandler) PendingReviews(c *gin.Context) {
	count, err := h.repos.Suggestion.CountPending(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to count pending reviews: "+err.Error())
		return
	}
	items, _, err := h.repos.Suggestion.FindAll(c.Request.Context(), 1, 50, map[string]string{
		"status": entity.SuggestionPending,
	})
	if err != nil {
		InternalError(c, "failed to list pending reviews: "+err.Error())
		return
	}
	Success(c, gin.H{
		"pending_count": count,
		"suggestions":   items,
	})
}

// FileProcessed mirrors the file status callback for workflows that only
// know the file id.
func (h *WebhookHandler) FileProcessed(c *gin.Context) {
	var req struct {
		FileID        uint           `json:"file_id" binding:"required"`
		Status        string         `json:"processing_status" binding:"required"`
		ExtractedData entity.JSONMap `json:"extracted_data"`
		Confidence    float64        `json:"extraction_confidence"`
		ErrorMessage  string         `json:"error_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	f, err := h.uploads.UpdateStatus(c.Request.Context(), req.FileID, req.Status, req.ExtractedData, req.Confidence, req.ErrorMessage)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, f)
}

// Stats gives the workflow a cheap overview of queue depths.
func (h *WebhookHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	pending, err := h.repos.Suggestion.CountPending(ctx)
	if err != nil {
		InternalError(c, "failed to gather stats: "+err.Error())
		return
	}
	_, materials, err := h.repos.Material.FindAll(ctx, 1, 1, map[string]string{})
	if err != nil {
		InternalError(c, "failed to gather stats: "+err.Error())
		return
	}
	_, pos, err := h.repos.PurchaseOrder.FindAll(ctx, 1, 1, map[string]string{})
	if err != nil {
		InternalError(c, "failed to gather stats: "+err.Error())
		return
	}
	_, payments, err := h.repos.Payment.FindAll(ctx, 1, 1, map[string]string{})
	if err != nil {
		InternalError(c, "failed to gather stats: "+err.Error())
		return
	}
	_, deliveries, err := h.repos.Delivery.FindAll(ctx, 1, 1, map[string]string{})
	if err != nil {
		InternalError(c, "failed to gather stats: "+err.Error())
		return
	}

	Success(c, gin.H{
		"pending_suggestions": pending,
		"materials":           materials,
		"purchase_orders":     pos,
		"payments":            payments,
		"deliveries":          deliveries,
	})
}

func orDefaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
