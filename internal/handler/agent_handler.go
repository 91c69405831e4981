package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/engine"
)

// AgentEngine is the processing surface the agent endpoints expose over HTTP.
type AgentEngine interface {
	Process(ctx context.Context, recordType string, data map[string]interface{}, opts engine.ProcessOptions) (engine.ProcessResult, error)
}

// AgentHandler exposes the validation engine directly, so external workflows
// can dry-run a record before committing it.
type AgentHandler struct {
	engine AgentEngine
}

func NewAgentHandler(eng AgentEngine) *AgentHandler {
	return &AgentHandler{engine: eng}
}

type agentRequest struct {
	RecordType       string                 `json:"record_type" binding:"required"`
	Data             map[string]interface{} `json:"data" binding:"required"`
	CheckDuplicates  bool                   `json:"check_duplicates"`
	MatchInvoiceToPO bool                   `json:"match_invoice_to_po"`
	FuzzyMatch       bool                   `json:"fuzzy_match"`
}

func validRecordType(s string) bool {
	switch s {
	case engine.RecordSubmittal, engine.RecordLPORelease, engine.RecordInvoice, engine.RecordDelivery:
		return true
	}
	return false
}

// ValidateAndCheck runs the full engine pass over one record bag and returns
// the result without writing anything.
func (h *AgentHandler) ValidateAndCheck(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !validRecordType(req.RecordType) {
		BadRequest(c, "invalid record_type "+req.RecordType)
		return
	}

	res, err := h.engine.Process(c.Request.Context(), req.RecordType, req.Data, engine.ProcessOptions{
		CheckDuplicates:  req.CheckDuplicates,
		MatchInvoiceToPO: req.MatchInvoiceToPO,
		Match:            engine.MatchOptions{Fuzzy: req.FuzzyMatch},
	})
	if err != nil {
		InternalError(c, "engine processing failed: "+err.Error())
		return
	}
	Success(c, res)
}

// Test is an unauthenticated smoke check that the engine is wired up.
func (h *AgentHandler) Test(c *gin.Context) {
	res, err := h.engine.Process(c.Request.Context(), engine.RecordSubmittal, map[string]interface{}{
		"material_type":   "Cement",
		"approval_status": "Pending",
	}, engine.ProcessOptions{})
	if err != nil {
		InternalError(c, "engine processing failed: "+err.Error())
		return
	}
	Success(c, gin.H{"engine": "ok", "sample": res})
}

// Batch processes several record bags in one call and returns results in
// input order.
func (h *AgentHandler) Batch(c *gin.Context) {
	var req struct {
		Records []agentRequest `json:"records" binding:"required,min=1,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	results := make([]gin.H, 0, len(req.Records))
	for i, rec := range req.Records {
		if !validRecordType(rec.RecordType) {
			results = append(results, gin.H{"index": i, "error": "invalid record_type " + rec.RecordType})
			continue
		}
		res, err := h.engine.Process(c.Request.Context(), rec.RecordType, rec.Data, engine.ProcessOptions{
			CheckDuplicates:  rec.CheckDuplicates,
			MatchInvoiceToPO: rec.MatchInvoiceToPO,
			Match:            engine.MatchOptions{Fuzzy: rec.FuzzyMatch},
		})
		if err != nil {
			results = append(results, gin.H{"index": i, "error": err.Error()})
			continue
		}
		results = append(results, gin.H{"index": i, "result": res})
	}
	Success(c, gin.H{"count": len(results), "results": results})
}
