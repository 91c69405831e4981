package engine

import (
	"context"
	"testing"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/testutil"
	"go.uber.org/zap"
)

func TestProcessUsesConfiguredFuzzyMinimum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	eng := New(db, repos, zap.NewNop())

	m := testutil.SeedMaterial(t, db, "Cables", entity.ApprovalApproved)
	testutil.SeedPO(t, db, m.ID, "PO-2025-410", 30000)

	// Supplier differs slightly from the seeded "Test Supplier LLC".
	invoice := map[string]interface{}{
		"payment_date":  time.Now().Format("2006-01-02"),
		"supplier_name": "Test Supplier L.L.C",
		"total_amount":  30000.0,
	}
	opts := ProcessOptions{
		MatchInvoiceToPO: true,
		Match:            MatchOptions{Fuzzy: true},
	}

	eng.SetFuzzyMinScore(0.99)
	res, err := eng.Process(context.Background(), RecordInvoice, invoice, opts)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.MatchedPOID != nil {
		t.Fatalf("strict minimum should block the near-match, got po %d", *res.MatchedPOID)
	}

	eng.SetFuzzyMinScore(0.5)
	res, err = eng.Process(context.Background(), RecordInvoice, invoice, opts)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.MatchedPOID == nil {
		t.Fatalf("relaxed minimum should accept the near-match")
	}
}

func TestMatchOptionsOverrideDefaultMinimum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	eng := New(db, repos, zap.NewNop())
	eng.SetFuzzyMinScore(0.99)

	m := testutil.SeedMaterial(t, db, "Cables", entity.ApprovalApproved)
	testutil.SeedPO(t, db, m.ID, "PO-2025-411", 30000)

	res, err := eng.Process(context.Background(), RecordInvoice, map[string]interface{}{
		"payment_date":  time.Now().Format("2006-01-02"),
		"supplier_name": "Test Supplier L.L.C",
		"total_amount":  30000.0,
	}, ProcessOptions{
		MatchInvoiceToPO: true,
		Match:            MatchOptions{Fuzzy: true, MinScore: 0.5},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.MatchedPOID == nil {
		t.Fatalf("per-request minimum should win over the engine default")
	}
}
