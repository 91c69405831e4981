package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/service"
)

// FileHandler serves document uploads and the quote workbook analyzer.
type FileHandler struct {
	uploads *service.UploadService
	quotes  *service.QuoteService
}

func NewFileHandler(uploads *service.UploadService, quotes *service.QuoteService) *FileHandler {
	return &FileHandler{uploads: uploads, quotes: quotes}
}

// Upload accepts one multipart file plus optional entity links. The n8n
// trigger result rides along in the response.
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	opts := service.UploadOptions{
		FileType:        c.PostForm("file_type"),
		DocumentContext: c.PostForm("document_context"),
		MaterialID:      formUint(c, "material_id"),
		PurchaseOrderID: formUint(c, "purchase_order_id"),
		PaymentID:       formUint(c, "payment_id"),
		DeliveryID:      formUint(c, "delivery_id"),
		UploadedBy:      GetUserID(c),
	}

	result, err := h.uploads.Save(c.Request.Context(), header, opts)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Created(c, result)
}

func (h *FileHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"file_type":         c.Query("file_type"),
		"processing_status": c.Query("processing_status"),
	}

	items, total, err := h.uploads.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list files: "+err.Error())
		return
	}
	Success(c, listEnvelope(items, page, pageSize, total))
}

func (h *FileHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	f, err := h.uploads.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, f)
}

// UpdateStatus is the workflow's callback when a file finishes processing.
func (h *FileHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Status        string         `json:"processing_status" binding:"required"`
		ExtractedData entity.JSONMap `json:"extracted_data"`
		Confidence    float64        `json:"extraction_confidence"`
		ErrorMessage  string         `json:"error_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	f, err := h.uploads.UpdateStatus(c.Request.Context(), id, req.Status, req.ExtractedData, req.Confidence, req.ErrorMessage)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, f)
}

func (h *FileHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.uploads.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	Success(c, nil)
}

// AnalyzeQuote reads an uploaded xlsx quotation and returns the column
// layout and item rows for the LPO builder.
func (h *FileHandler) AnalyzeQuote(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	src, err := header.Open()
	if err != nil {
		BadRequest(c, "cannot read upload: "+err.Error())
		return
	}
	defer src.Close()

	analysis, err := h.quotes.Analyze(src)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, analysis)
}

func formUint(c *gin.Context, key string) *uint {
	v := c.PostForm(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return nil
	}
	id := uint(n)
	return &id
}
