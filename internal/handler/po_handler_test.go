package handler

import (
	"net/http"
	"testing"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/service"
	"github.com/pkpgroup/matdash/internal/testutil"
	"go.uber.org/zap"
)

func setupPOTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	eng := engine.New(db, repos, logger)

	poSvc := service.NewPOService(repos.PurchaseOrder, repos.Material, eng, logger)
	paymentSvc := service.NewPaymentService(db, repos.Payment, repos.PurchaseOrder, eng, logger)

	poH := NewPOHandler(poSvc)
	payH := NewPaymentHandler(paymentSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api")
	api.POST("/purchase-orders", poH.Create)
	api.GET("/purchase-orders/:id", poH.Get)
	api.POST("/payments", payH.Create)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func poCreateBody(materialID uint, ref string, amount float64) map[string]interface{} {
	return map[string]interface{}{
		"material_id":   materialID,
		"po_ref":        ref,
		"po_date":       "2025-06-01",
		"supplier_name": "Gulf Electrical Trading LLC",
		"total_amount":  amount,
	}
}

func TestPOCreateBlocksDuplicateRef(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.DefaultTestToken()
	m := testutil.SeedMaterial(t, env.DB, "Cables & Wires", entity.ApprovalApproved)

	w := testutil.DoRequest(env.Router, "POST", "/api/purchase-orders",
		poCreateBody(m.ID, "LPO-2025-001", 50000), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create status = %d, body = %s", w.Code, w.Body.String())
	}

	// Same reference again must be blocked with the duplicate details.
	w = testutil.DoRequest(env.Router, "POST", "/api/purchase-orders",
		poCreateBody(m.ID, "LPO-2025-001", 48000), token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate create status = %d, want 400, body = %s", w.Code, w.Body.String())
	}

	// Force pushes through, but the unique index still rejects the same
	// ref, so force is only meaningful for fuzzy matches.
	body := poCreateBody(m.ID, "LPO-2025-002", 48000)
	body["force"] = true
	w = testutil.DoRequest(env.Router, "POST", "/api/purchase-orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("forced create status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestPOCreateRequiresKnownMaterial(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/purchase-orders",
		poCreateBody(9999, "LPO-2025-003", 50000), token)
	if w.Code == http.StatusCreated {
		t.Error("create against missing material should fail")
	}
}

func TestPaymentBudgetEnforced(t *testing.T) {
	env := setupPOTest(t)
	token := testutil.DefaultTestToken()
	m := testutil.SeedMaterial(t, env.DB, "Cables & Wires", entity.ApprovalApproved)
	po := testutil.SeedPO(t, env.DB, m.ID, "LPO-2025-010", 50000)

	// 40,000 against a 50,000 PO is fine.
	w := testutil.DoRequest(env.Router, "POST", "/api/payments", map[string]interface{}{
		"po_id":        po.ID,
		"total_amount": 40000,
		"payment_date": "2025-06-10",
		"invoice_ref":  "INV-2025-201",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("first payment status = %d, body = %s", w.Code, w.Body.String())
	}

	// Another 15,000 would exceed the PO value by 5,000 and must be blocked.
	w = testutil.DoRequest(env.Router, "POST", "/api/payments", map[string]interface{}{
		"po_id":        po.ID,
		"total_amount": 15000,
		"payment_date": "2025-06-20",
		"invoice_ref":  "INV-2025-202",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("over-budget payment status = %d, want 400, body = %s", w.Code, w.Body.String())
	}

	// Topping up to exactly the PO value is allowed.
	w = testutil.DoRequest(env.Router, "POST", "/api/payments", map[string]interface{}{
		"po_id":        po.ID,
		"total_amount": 10000,
		"payment_date": "2025-06-20",
		"invoice_ref":  "INV-2025-203",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("exact-fit payment status = %d, body = %s", w.Code, w.Body.String())
	}
}
