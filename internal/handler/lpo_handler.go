package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/service"
)

// LPOHandler serves the LPO builder.
type LPOHandler struct {
	svc *service.LPOService
}

func NewLPOHandler(svc *service.LPOService) *LPOHandler {
	return &LPOHandler{svc: svc}
}

func (h *LPOHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":        c.Query("status"),
		"supplier_name": c.Query("supplier_name"),
		"search":        c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list LPOs: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *LPOHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	l, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, l)
}

// GetByNumber resolves a full LPO number. The number contains slashes, so the
// route uses a wildcard and the leading slash is trimmed here.
func (h *LPOHandler) GetByNumber(c *gin.Context) {
	number := strings.TrimPrefix(c.Param("number"), "/")
	if number == "" {
		BadRequest(c, "lpo number is required")
		return
	}
	l, err := h.svc.GetByNumber(c.Request.Context(), number)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, l)
}

func (h *LPOHandler) GenerateNumber(c *gin.Context) {
	number, err := h.svc.PreviewNumber(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to generate number: "+err.Error())
		return
	}
	Success(c, gin.H{"lpo_number": number})
}

func (h *LPOHandler) Create(c *gin.Context) {
	var req service.CreateLPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	l, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, l)
}

func (h *LPOHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.UpdateLPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	l, err := h.svc.Update(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, l)
}

func (h *LPOHandler) ChangeStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	l, err := h.svc.ChangeStatus(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, l)
}

func (h *LPOHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.Cancel(c.Request.Context(), id, GetUserID(c), req.Notes); err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, nil)
}

func (h *LPOHandler) History(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	history, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, history)
}

// PDFPayload emits the render document for the external PDF service.
func (h *LPOHandler) PDFPayload(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	l, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, service.BuildPDFPayload(l))
}
