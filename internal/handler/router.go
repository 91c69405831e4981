package handler

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/config"
	"github.com/pkpgroup/matdash/internal/middleware"
	"go.uber.org/zap"
)

// RegisterRoutes wires every endpoint onto the engine. Dashboard routes sit
// behind JWT auth, the workflow callbacks behind a shared API key.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, logger *zap.Logger, h *Handlers) {
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", h.Webhook.Health)

	api := r.Group("/api")

	// Workflow callbacks. Health stays open so n8n can probe before it has
	// credentials configured.
	n8n := api.Group("/n8n")
	n8n.GET("/health", h.Webhook.Health)
	n8nAuth := n8n.Group("", middleware.APIKeyAuth(cfg.N8N.InboundAPIKey))
	{
		n8nAuth.POST("/delivery-extraction", h.Webhook.DeliveryExtraction)
		n8nAuth.POST("/po-extraction", h.Webhook.POExtraction)
		n8nAuth.POST("/invoice-extraction", h.Webhook.InvoiceExtraction)
		n8nAuth.POST("/ai-suggestion", h.Webhook.CreateSuggestion)
		n8nAuth.POST("/file-processed", h.Webhook.FileProcessed)
		n8nAuth.GET("/pending-reviews", h.Webhook.PendingReviews)
		n8nAuth.GET("/stats", h.Webhook.Stats)
	}

	agents := api.Group("/agents")
	{
		agents.GET("/test", h.Agent.Test)
		agents.POST("/validate-and-check", h.Agent.ValidateAndCheck)
		agents.POST("/batch", middleware.APIKeyAuth(cfg.N8N.InboundAPIKey), h.Agent.Batch)
	}

	auth := api.Group("", middleware.JWTAuth(cfg.JWT.Secret))

	materials := auth.Group("/materials")
	{
		materials.GET("", h.Material.List)
		materials.POST("", h.Material.Create)
		materials.GET("/:id", h.Material.Get)
		materials.PUT("/:id", h.Material.Update)
		materials.DELETE("/:id", h.Material.Delete)
		materials.GET("/:id/revisions", h.Material.RevisionChain)
		materials.POST("/:id/revise", h.Material.Revise)
	}

	pos := auth.Group("/purchase-orders")
	{
		pos.GET("", h.PO.List)
		pos.POST("", h.PO.Create)
		pos.GET("/:id", h.PO.Get)
		pos.PUT("/:id", h.PO.Update)
		pos.DELETE("/:id", h.PO.Delete)
	}

	payments := auth.Group("/payments")
	{
		payments.GET("", h.Payment.List)
		payments.POST("", h.Payment.Create)
		payments.GET("/by-po/:poId", h.Payment.ListByPO)
		payments.GET("/:id", h.Payment.Get)
		payments.PUT("/:id", h.Payment.Update)
		payments.DELETE("/:id", h.Payment.Delete)
	}

	deliveries := auth.Group("/deliveries")
	{
		deliveries.GET("", h.Delivery.List)
		deliveries.POST("", h.Delivery.Create)
		deliveries.GET("/delayed", h.Delivery.Delayed)
		deliveries.GET("/pending", h.Delivery.Pending)
		deliveries.GET("/:id", h.Delivery.Get)
		deliveries.PUT("/:id", h.Delivery.Update)
		deliveries.DELETE("/:id", h.Delivery.Delete)
	}

	files := auth.Group("/files")
	{
		files.GET("", h.File.List)
		files.POST("/upload", h.File.Upload)
		files.POST("/analyze-quote", h.File.AnalyzeQuote)
		files.GET("/:id", h.File.Get)
		files.DELETE("/:id", h.File.Delete)
	}
	// The extraction workflow reports file status with its API key, not a
	// user token.
	api.PUT("/files/:id/status", middleware.APIKeyAuth(cfg.N8N.InboundAPIKey), h.File.UpdateStatus)

	lpos := auth.Group("/lpo")
	{
		lpos.GET("", h.LPO.List)
		lpos.POST("", h.LPO.Create)
		lpos.GET("/generate-number", h.LPO.GenerateNumber)
		lpos.GET("/number/*number", h.LPO.GetByNumber)
		lpos.GET("/:id", h.LPO.Get)
		lpos.PUT("/:id", h.LPO.Update)
		lpos.DELETE("/:id", h.LPO.Delete)
		lpos.PUT("/:id/status", h.LPO.ChangeStatus)
		lpos.GET("/:id/history", h.LPO.History)
		lpos.GET("/:id/pdf-payload", h.LPO.PDFPayload)
	}

	suggestions := auth.Group("/ai-suggestions")
	{
		suggestions.GET("", h.Suggestion.List)
		suggestions.GET("/pending", h.Suggestion.Pending)
		suggestions.GET("/:id", h.Suggestion.Get)
		suggestions.POST("/:id/approve", h.Suggestion.Approve)
		suggestions.POST("/:id/reject", h.Suggestion.Reject)
	}
}
