package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/pipeline"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/testutil"
	"go.uber.org/zap"
)

func setupSuggestionTest(t *testing.T) (*testutil.TestEnv, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	eng := engine.New(db, repos, logger)
	pipe := pipeline.New(db, repos, eng.Validator(), nil, logger, 90, 60)

	h := NewSuggestionHandler(repos, pipe)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/ai-suggestions")
	api.GET("", h.List)
	api.GET("/pending", h.Pending)
	api.GET("/:id", h.Get)
	api.POST("/:id/approve", h.Approve)
	api.POST("/:id/reject", h.Reject)

	return &testutil.TestEnv{DB: db, Router: router, T: t}, repos
}

func seedSuggestion(t *testing.T, env *testutil.TestEnv, targetID uint, data entity.JSONMap) *entity.AISuggestion {
	t.Helper()
	s := &entity.AISuggestion{
		TargetTable:     entity.TargetDeliveries,
		TargetID:        &targetID,
		ActionType:      entity.ActionUpdate,
		ConfidenceScore: 75,
		SuggestedData:   data,
		AIModel:         "gpt-4o",
		Status:          entity.SuggestionPending,
	}
	if err := env.DB.Create(s).Error; err != nil {
		t.Fatalf("seed suggestion: %v", err)
	}
	return s
}

func TestApproveSuggestionAppliesChanges(t *testing.T) {
	env, _ := setupSuggestionTest(t)
	d := seedDeliveryChain(t, env.DB)
	s := seedSuggestion(t, env, d.ID, entity.JSONMap{"carrier": "Aramex", "tracking_number": "AWB-110022"})

	token := testutil.DefaultTestToken()
	w := testutil.DoRequest(env.Router, "POST", fmt.Sprintf("/api/ai-suggestions/%d/approve", s.ID),
		map[string]interface{}{"review_notes": "checked against delivery note"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got entity.AISuggestion
	if err := env.DB.First(&got, s.ID).Error; err != nil {
		t.Fatalf("reload suggestion: %v", err)
	}
	if got.Status != entity.SuggestionApproved {
		t.Errorf("suggestion status = %q, want approved", got.Status)
	}
	if got.ReviewedAt == nil {
		t.Error("ReviewedAt not stamped")
	}
	if got.ReviewNotes != "checked against delivery note" {
		t.Errorf("review notes = %q", got.ReviewNotes)
	}

	var delivery entity.Delivery
	if err := env.DB.First(&delivery, d.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if delivery.Carrier != "Aramex" {
		t.Errorf("carrier = %q, want Aramex", delivery.Carrier)
	}
	if delivery.UpdatedBy != "AI (gpt-4o)" {
		t.Errorf("updated_by = %q, want AI (gpt-4o)", delivery.UpdatedBy)
	}
}

func TestApproveAlreadyReviewedFails(t *testing.T) {
	env, _ := setupSuggestionTest(t)
	d := seedDeliveryChain(t, env.DB)
	s := seedSuggestion(t, env, d.ID, entity.JSONMap{"carrier": "DHL"})
	env.DB.Model(s).Update("status", entity.SuggestionApproved)

	token := testutil.DefaultTestToken()
	w := testutil.DoRequest(env.Router, "POST", fmt.Sprintf("/api/ai-suggestions/%d/approve", s.ID), nil, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for already reviewed suggestion", w.Code)
	}
}

func TestRejectSuggestionLeavesTargetUntouched(t *testing.T) {
	env, _ := setupSuggestionTest(t)
	d := seedDeliveryChain(t, env.DB)
	s := seedSuggestion(t, env, d.ID, entity.JSONMap{"carrier": "DHL"})

	token := testutil.DefaultTestToken()
	w := testutil.DoRequest(env.Router, "POST", fmt.Sprintf("/api/ai-suggestions/%d/reject", s.ID),
		map[string]interface{}{"review_notes": "wrong document"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got entity.AISuggestion
	if err := env.DB.First(&got, s.ID).Error; err != nil {
		t.Fatalf("reload suggestion: %v", err)
	}
	if got.Status != entity.SuggestionRejected {
		t.Errorf("suggestion status = %q, want rejected", got.Status)
	}

	var delivery entity.Delivery
	if err := env.DB.First(&delivery, d.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if delivery.Carrier != "" {
		t.Errorf("carrier = %q, want untouched", delivery.Carrier)
	}
}

func TestPendingSuggestionList(t *testing.T) {
	env, _ := setupSuggestionTest(t)
	d := seedDeliveryChain(t, env.DB)
	seedSuggestion(t, env, d.ID, entity.JSONMap{"carrier": "DHL"})
	done := seedSuggestion(t, env, d.ID, entity.JSONMap{"carrier": "Aramex"})
	env.DB.Model(done).Update("status", entity.SuggestionRejected)

	token := testutil.DefaultTestToken()
	w := testutil.DoRequest(env.Router, "GET", "/api/ai-suggestions/pending", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	if pagination["total"] != float64(1) {
		t.Errorf("total = %v, want 1", pagination["total"])
	}
}

func TestSuggestionRequiresAuth(t *testing.T) {
	env, _ := setupSuggestionTest(t)

	w := testutil.DoRequest(env.Router, "GET", "/api/ai-suggestions/pending", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", w.Code)
	}
}
