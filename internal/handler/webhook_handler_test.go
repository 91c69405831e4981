package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/pipeline"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/service"
	"github.com/pkpgroup/matdash/internal/shared/n8nflow"
	"github.com/pkpgroup/matdash/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testCtx() context.Context {
	return context.Background()
}

func setupWebhookTest(t *testing.T) (*testutil.TestEnv, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	eng := engine.New(db, repos, logger)
	pipe := pipeline.New(db, repos, eng.Validator(), nil, logger, 90, 60)

	flow := n8nflow.NewClient("", "", "", 0, logger)
	uploads := service.NewUploadService(repos.File, flow, logger, t.TempDir(), 10<<20,
		[]string{"pdf", "png", "jpg", "xlsx"})

	h := NewWebhookHandler(pipe, repos, uploads)

	router := testutil.SetupRouter()
	n8n := testutil.KeyGroup(router, "/api/n8n")
	n8n.POST("/delivery-extraction", h.DeliveryExtraction)
	n8n.POST("/po-extraction", h.POExtraction)
	n8n.POST("/invoice-extraction", h.InvoiceExtraction)
	n8n.POST("/ai-suggestion", h.CreateSuggestion)
	n8n.GET("/pending-reviews", h.PendingReviews)

	return &testutil.TestEnv{DB: db, Router: router, T: t}, repos
}

func seedDeliveryChain(t *testing.T, db *gorm.DB) *entity.Delivery {
	t.Helper()
	m := testutil.SeedMaterial(t, db, "Cables & Wires", entity.ApprovalApproved)
	po := testutil.SeedPO(t, db, m.ID, "PO-2025-101", 50000)
	return testutil.SeedDelivery(t, db, po.ID, entity.DeliveryStatusPending)
}

func deliveryPayload(id uint, confidence float64) map[string]interface{} {
	return map[string]interface{}{
		"delivery_id":           id,
		"extraction_status":     "completed",
		"extraction_confidence": confidence,
		"extracted_data": map[string]interface{}{
			"status":              entity.DeliveryStatusCompleted,
			"delivery_percentage": 100,
			"received_by":         "Site Store",
		},
		"ai_model": "gpt-4o",
	}
}

func TestDeliveryExtractionAutoApply(t *testing.T) {
	env, _ := setupWebhookTest(t)
	d := seedDeliveryChain(t, env.DB)

	w := testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", deliveryPayload(d.ID, 92))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionAutoApplied {
		t.Errorf("action = %v, want auto_applied", data["action"])
	}

	var got entity.Delivery
	if err := env.DB.First(&got, d.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if got.DeliveryStatus != entity.DeliveryStatusCompleted {
		t.Errorf("delivery status = %q, want Completed", got.DeliveryStatus)
	}
	if got.ExtractionStatus != entity.ExtractionCompleted {
		t.Errorf("extraction status = %q, want completed", got.ExtractionStatus)
	}
	if got.UpdatedBy != "AI (Auto)" {
		t.Errorf("updated_by = %q, want AI (Auto)", got.UpdatedBy)
	}
	if got.ReceivedBy != "Site Store" {
		t.Errorf("received_by = %q, want Site Store", got.ReceivedBy)
	}
}

func TestDeliveryExtractionLowConfidenceSuggests(t *testing.T) {
	env, repos := setupWebhookTest(t)
	d := seedDeliveryChain(t, env.DB)

	w := testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", deliveryPayload(d.ID, 75))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionSuggestionCreated {
		t.Errorf("action = %v, want suggestion_created", data["action"])
	}
	if data["requires_review"] != true {
		t.Error("expected requires_review = true")
	}

	var got entity.Delivery
	if err := env.DB.First(&got, d.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if got.DeliveryStatus != entity.DeliveryStatusPending {
		t.Errorf("delivery status changed to %q on low confidence", got.DeliveryStatus)
	}
	if got.ExtractionStatus != entity.ExtractionNeedsReview {
		t.Errorf("extraction status = %q, want needs_review", got.ExtractionStatus)
	}

	count, err := repos.Suggestion.CountPending(testCtx())
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if count != 1 {
		t.Errorf("pending suggestions = %d, want 1", count)
	}
}

func TestAutoApplyThresholdBoundary(t *testing.T) {
	env, _ := setupWebhookTest(t)

	atBar := seedDeliveryChain(t, env.DB)
	w := testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", deliveryPayload(atBar.ID, 90))
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionAutoApplied {
		t.Errorf("confidence 90: action = %v, want auto_applied", data["action"])
	}

	below := seedDeliveryChain(t, env.DB)
	w = testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", deliveryPayload(below.ID, 89.9))
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionSuggestionCreated {
		t.Errorf("confidence 89.9: action = %v, want suggestion_created", data["action"])
	}
}

func TestExtractionReplayIsIdempotent(t *testing.T) {
	env, _ := setupWebhookTest(t)
	d := seedDeliveryChain(t, env.DB)
	payload := deliveryPayload(d.ID, 92)

	w := testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", payload)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionAutoApplied {
		t.Fatalf("first call: action = %v", data["action"])
	}

	w = testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("replay status = %d", w.Code)
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionDuplicateIgnored {
		t.Errorf("replay action = %v, want duplicate_ignored", data["action"])
	}
}

func TestExtractionFailureRecorded(t *testing.T) {
	env, _ := setupWebhookTest(t)
	d := seedDeliveryChain(t, env.DB)

	w := testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", map[string]interface{}{
		"delivery_id":       d.ID,
		"extraction_status": "failed",
		"error_message":     "document unreadable",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["action"] != pipeline.ActionFailureRecorded {
		t.Errorf("action = %v, want failure_recorded", data["action"])
	}

	var got entity.Delivery
	if err := env.DB.First(&got, d.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if got.ExtractionStatus != entity.ExtractionFailed {
		t.Errorf("extraction status = %q, want failed", got.ExtractionStatus)
	}
}

func TestWebhookAuth(t *testing.T) {
	env, _ := setupWebhookTest(t)

	req, _ := http.NewRequest("POST", "/api/n8n/delivery-extraction", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want 401", w.Code)
	}

	req, _ = http.NewRequest("POST", "/api/n8n/delivery-extraction", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d, want 403", w.Code)
	}
}

func TestCreateSuggestionEndpoint(t *testing.T) {
	env, repos := setupWebhookTest(t)
	d := seedDeliveryChain(t, env.DB)

	// High confidence applies immediately.
	w := testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/ai-suggestion", map[string]interface{}{
		"target_table":     entity.TargetDeliveries,
		"target_id":        d.ID,
		"action_type":      entity.ActionUpdate,
		"confidence_score": 95,
		"suggested_data":   map[string]interface{}{"received_by": "Foreman"},
		"ai_model":         "gpt-4o",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["auto_applied"] != true {
		t.Error("expected high-confidence suggestion to auto-apply")
	}

	var got entity.Delivery
	if err := env.DB.First(&got, d.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if got.ReceivedBy != "Foreman" {
		t.Errorf("received_by = %q, want Foreman", got.ReceivedBy)
	}

	// Low confidence stays pending.
	w = testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/ai-suggestion", map[string]interface{}{
		"target_table":     entity.TargetDeliveries,
		"target_id":        d.ID,
		"action_type":      entity.ActionUpdate,
		"confidence_score": 70,
		"suggested_data":   map[string]interface{}{"carrier": "Aramex"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["auto_applied"] != false {
		t.Error("expected low-confidence suggestion to stay pending")
	}

	count, err := repos.Suggestion.CountPending(testCtx())
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if count != 1 {
		t.Errorf("pending suggestions = %d, want 1", count)
	}
}

func TestPendingReviewsEndpoint(t *testing.T) {
	env, _ := setupWebhookTest(t)
	d := seedDeliveryChain(t, env.DB)

	testutil.DoKeyRequest(env.Router, "POST", "/api/n8n/delivery-extraction", deliveryPayload(d.ID, 70))

	w := testutil.DoKeyRequest(env.Router, "GET", "/api/n8n/pending-reviews", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["pending_count"] != float64(1) {
		t.Errorf("pending_count = %v, want 1", data["pending_count"])
	}
}
