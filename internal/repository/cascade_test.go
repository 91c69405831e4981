package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/testutil"
	"gorm.io/gorm"
)

func seedChain(t *testing.T, db *gorm.DB) (*entity.Material, *entity.PurchaseOrder, *entity.Payment, *entity.Delivery, *entity.File) {
	t.Helper()

	m := testutil.SeedMaterial(t, db, "Cement", entity.ApprovalApproved)
	po := testutil.SeedPO(t, db, m.ID, "PO-2025-301", 50000)
	d := testutil.SeedDelivery(t, db, po.ID, entity.DeliveryStatusPending)

	p := &entity.Payment{POID: po.ID, TotalAmount: 20000, Currency: "AED"}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	f := &entity.File{
		Filename:         "inv.pdf",
		OriginalFilename: "inv.pdf",
		FilePath:         "static/uploads/2025/06/inv.pdf",
		FileType:         entity.FileTypeInvoice,
		FileSize:         1024,
		PurchaseOrderID:  &po.ID,
		PaymentID:        &p.ID,
		UploadedAt:       time.Now(),
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return m, po, p, d, f
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestPODeleteCascadesToFiles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	_, po, _, _, _ := seedChain(t, db)

	if err := NewPurchaseOrderRepository(db).Delete(ctx, po.ID); err != nil {
		t.Fatalf("delete po: %v", err)
	}

	if n := countRows(t, db, &entity.Payment{}); n != 0 {
		t.Errorf("payments left: %d", n)
	}
	if n := countRows(t, db, &entity.Delivery{}); n != 0 {
		t.Errorf("deliveries left: %d", n)
	}
	if n := countRows(t, db, &entity.File{}); n != 0 {
		t.Errorf("file rows left: %d", n)
	}
	if n := countRows(t, db, &entity.Material{}); n != 1 {
		t.Errorf("material should survive a po delete, rows = %d", n)
	}
}

func TestMaterialDeleteCascadesDownTheChain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	m, _, _, _, _ := seedChain(t, db)

	if err := NewMaterialRepository(db).Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete material: %v", err)
	}

	for name, model := range map[string]interface{}{
		"materials":       &entity.Material{},
		"purchase_orders": &entity.PurchaseOrder{},
		"payments":        &entity.Payment{},
		"deliveries":      &entity.Delivery{},
		"files":           &entity.File{},
	} {
		if n := countRows(t, db, model); n != 0 {
			t.Errorf("%s left after material delete: %d", name, n)
		}
	}
}
