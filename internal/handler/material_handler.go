package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/service"
)

// MaterialHandler serves the submittal schedule.
type MaterialHandler struct {
	svc *service.MaterialService
}

func NewMaterialHandler(svc *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

func (h *MaterialHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"material_type":   c.Query("material_type"),
		"approval_status": c.Query("approval_status"),
		"search":          c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list materials: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *MaterialHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, m)
}

func (h *MaterialHandler) RevisionChain(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	chain, err := h.svc.RevisionChain(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, chain)
}

func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, m)
}

func (h *MaterialHandler) Revise(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m, err := h.svc.Revise(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, m)
}

func (h *MaterialHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m, err := h.svc.Update(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, m)
}

func (h *MaterialHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, nil)
}
