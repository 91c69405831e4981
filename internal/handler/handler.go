package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/pipeline"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/service"
)

// Handlers bundles every HTTP handler of the dashboard API.
type Handlers struct {
	Material   *MaterialHandler
	PO         *POHandler
	Payment    *PaymentHandler
	Delivery   *DeliveryHandler
	File       *FileHandler
	LPO        *LPOHandler
	Suggestion *SuggestionHandler
	Webhook    *WebhookHandler
	Agent      *AgentHandler
}

func NewHandlers(
	materialSvc *service.MaterialService,
	poSvc *service.POService,
	paymentSvc *service.PaymentService,
	deliverySvc *service.DeliveryService,
	uploadSvc *service.UploadService,
	lpoSvc *service.LPOService,
	quoteSvc *service.QuoteService,
	pipe *pipeline.Pipeline,
	repos *repository.Repositories,
	eng AgentEngine,
) *Handlers {
	return &Handlers{
		Material:   NewMaterialHandler(materialSvc),
		PO:         NewPOHandler(poSvc),
		Payment:    NewPaymentHandler(paymentSvc),
		Delivery:   NewDeliveryHandler(deliverySvc),
		File:       NewFileHandler(uploadSvc, quoteSvc),
		LPO:        NewLPOHandler(lpoSvc),
		Suggestion: NewSuggestionHandler(repos, pipe),
		Webhook:    NewWebhookHandler(pipe, repos, uploadSvc),
		Agent:      NewAgentHandler(eng),
	}
}

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// BadRequestData returns a 400 carrying structured detail, used for
// validation errors and duplicate candidates.
func BadRequestData(c *gin.Context, message string, data interface{}) {
	c.JSON(400, Response{
		Code:    40000,
		Message: message,
		Data:    data,
	})
}

// respondServiceError maps the service error taxonomy onto the envelope.
func respondServiceError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	var dErr *service.DuplicateError
	var bErr *service.BudgetError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "record not found")
	case errors.As(err, &vErr):
		BadRequestData(c, "validation failed", vErr)
	case errors.As(err, &dErr):
		BadRequestData(c, "possible duplicates found", dErr)
	case errors.As(err, &bErr):
		BadRequestData(c, bErr.Outcome.Message, bErr)
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok && id != "" {
		return id
	}
	return "Manual"
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func listEnvelope(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
