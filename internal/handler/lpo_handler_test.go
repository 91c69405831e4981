package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/service"
	"github.com/pkpgroup/matdash/internal/testutil"
	"go.uber.org/zap"
)

func setupLPOTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	svc := service.NewLPOService(db, repository.NewLPORepository(db), zap.NewNop())
	h := NewLPOHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/lpo")
	api.GET("", h.List)
	api.POST("", h.Create)
	api.GET("/generate-number", h.GenerateNumber)
	api.GET("/number/*number", h.GetByNumber)
	api.GET("/:id", h.Get)
	api.PUT("/:id", h.Update)
	api.DELETE("/:id", h.Delete)
	api.PUT("/:id/status", h.ChangeStatus)
	api.GET("/:id/history", h.History)
	api.GET("/:id/pdf-payload", h.PDFPayload)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func lpoCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"project_name":     "Marina Tower Package 2",
		"supplier_name":    "Gulf Electrical Trading LLC",
		"column_structure": []string{"DESCRIPTION", "UNIT", "QTY", "RATE"},
		"items": []map[string]interface{}{
			{"DESCRIPTION": "PVC Conduit 25mm", "UNIT": "Mtr", "QTY": 500, "RATE": 4.5},
			{"DESCRIPTION": "Cable Tray 200mm", "UNIT": "Mtr", "QTY": 120, "RATE": 85},
		},
	}
}

func TestLPOCreateAndFetchByNumber(t *testing.T) {
	env := setupLPOTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/lpo", lpoCreateBody(), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := testutil.ParseResponse(w)["data"].(map[string]interface{})
	number := created["lpo_number"].(string)
	wantNumber := fmt.Sprintf("LPO/PKP/%d/0001", time.Now().Year())
	if number != wantNumber {
		t.Errorf("lpo_number = %q, want %q", number, wantNumber)
	}

	// The number contains slashes; the wildcard route must resolve it.
	w = testutil.DoRequest(env.Router, "GET", "/api/lpo/number/"+number, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get by number status = %d, body = %s", w.Code, w.Body.String())
	}
	got := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if got["lpo_number"] != number {
		t.Errorf("fetched lpo_number = %v, want %v", got["lpo_number"], number)
	}
	if got["subtotal"] != float64(12450) {
		t.Errorf("subtotal = %v, want 12450", got["subtotal"])
	}
}

func TestLPOGenerateNumberPreview(t *testing.T) {
	env := setupLPOTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "GET", "/api/lpo/generate-number", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	want := fmt.Sprintf("LPO/PKP/%d/0001", time.Now().Year())
	if data["lpo_number"] != want {
		t.Errorf("preview = %v, want %v", data["lpo_number"], want)
	}
}

func TestLPODeleteIsSoftCancel(t *testing.T) {
	env := setupLPOTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/lpo", lpoCreateBody(), token)
	created := testutil.ParseResponse(w)["data"].(map[string]interface{})
	id := uint(created["id"].(float64))

	w = testutil.DoRequest(env.Router, "DELETE", fmt.Sprintf("/api/lpo/%d", id),
		map[string]interface{}{"notes": "duplicate entry"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}

	var got entity.LPO
	if err := env.DB.First(&got, id).Error; err != nil {
		t.Fatalf("row should survive soft cancel: %v", err)
	}
	if got.Status != entity.LPOCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

func TestLPOPDFPayloadEndpoint(t *testing.T) {
	env := setupLPOTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/lpo", lpoCreateBody(), token)
	created := testutil.ParseResponse(w)["data"].(map[string]interface{})
	id := uint(created["id"].(float64))

	w = testutil.DoRequest(env.Router, "GET", fmt.Sprintf("/api/lpo/%d/pdf-payload", id), nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["grand_total_in_words"] == "" {
		t.Error("grand_total_in_words missing from payload")
	}
	fileName, _ := data["file_name"].(string)
	wantName := fmt.Sprintf("LPO_PKP_%d_0001_rev00.pdf", time.Now().Year())
	if fileName != wantName {
		t.Errorf("file_name = %q, want %q", fileName, wantName)
	}
}
