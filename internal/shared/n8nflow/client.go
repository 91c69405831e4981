package n8nflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client posts extraction requests to the n8n document workflow. The workflow
// answers asynchronously through the webhook endpoints, so the only thing a
// caller learns here is whether the trigger was accepted.
type Client struct {
	baseURL     string
	webhookPath string
	apiKey      string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(baseURL, webhookPath, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		webhookPath: webhookPath,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// ExtractionRequest identifies an uploaded document and where its results
// should land.
type ExtractionRequest struct {
	FileID          uint   `json:"file_id"`
	FileURL         string `json:"file_url,omitempty"`
	FilePath        string `json:"file_path"`
	FileType        string `json:"file_type"`
	DocumentContext string `json:"document_context,omitempty"`

	// Locally extracted text, filled in when the workflow cannot fetch
	// the file itself.
	DocumentText string `json:"document_text,omitempty"`
	NumPages     int    `json:"num_pages,omitempty"`

	MaterialID      uint `json:"material_id,omitempty"`
	PurchaseOrderID uint `json:"purchase_order_id,omitempty"`
	PaymentID       uint `json:"payment_id,omitempty"`
	DeliveryID      uint `json:"delivery_id,omitempty"`
}

// TriggerExtraction fires the workflow. Failures are logged and reported as
// false, never as an error; document processing must not block an upload.
func (c *Client) TriggerExtraction(ctx context.Context, req *ExtractionRequest) bool {
	if c.baseURL == "" {
		return false
	}

	body, err := json.Marshal(req)
	if err != nil {
		c.logger.Warn("n8n trigger payload marshal failed", zap.Error(err))
		return false
	}

	url := c.baseURL + c.webhookPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("n8n trigger request failed", zap.Error(err))
		return false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("n8n trigger failed",
			zap.String("url", url),
			zap.Uint("file_id", req.FileID),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("n8n trigger rejected",
			zap.String("url", url),
			zap.Uint("file_id", req.FileID),
			zap.Int("status", resp.StatusCode))
		return false
	}

	c.logger.Info("n8n extraction triggered",
		zap.Uint("file_id", req.FileID),
		zap.String("file_type", req.FileType))
	return true
}
