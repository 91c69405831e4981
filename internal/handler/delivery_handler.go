package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/service"
)

// DeliveryHandler serves deliveries.
type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

func (h *DeliveryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"po_id":           c.Query("po_id"),
		"delivery_status": c.Query("delivery_status"),
		"search":          c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list deliveries: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *DeliveryHandler) Delayed(c *gin.Context) {
	items, err := h.svc.Delayed(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to list delayed deliveries: "+err.Error())
		return
	}
	Success(c, items)
}

func (h *DeliveryHandler) Pending(c *gin.Context) {
	items, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to list pending deliveries: "+err.Error())
		return
	}
	Success(c, items)
}

func (h *DeliveryHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, d)
}

func (h *DeliveryHandler) Create(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	d, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, d)
}

func (h *DeliveryHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.UpdateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, d)
}

func (h *DeliveryHandler) Delete(c *gin.Context) {
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
