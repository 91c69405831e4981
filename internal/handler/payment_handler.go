package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/service"
)

// PaymentHandler serves payments and invoices.
type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"po_id":          c.Query("po_id"),
		"payment_status": c.Query("payment_status"),
		"search":         c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list payments: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *PaymentHandler) ListByPO(c *gin.Context) {
	poID, err := strconv.ParseUint(c.Param("poId"), 10, 32)
	if err != nil || poID == 0 {
		BadRequest(c, "invalid purchase order id")
		return
	}
	items, svcErr := h.svc.ListByPO(c.Request.Context(), uint(poID))
	if svcErr != nil {
		InternalError(c, "failed to list payments: "+svcErr.Error())
		return
	}
	Success(c, items)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, p)
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Created(c, p)
}

func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, p)
}

func (h *PaymentHandler) Delete(c *gin.Context) {
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
