package service

import (
	"context"
	"testing"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/testutil"
	"go.uber.org/zap"
)

func newMaterialTestService(t *testing.T) *MaterialService {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	eng := engine.New(db, repos, zap.NewNop())
	return NewMaterialService(repos.Material, eng, zap.NewNop())
}

func TestMaterialCreateRejectsBadSubmissionDate(t *testing.T) {
	svc := newMaterialTestService(t)

	_, err := svc.Create(context.Background(), "user-1", &CreateMaterialRequest{
		MaterialType: "Cement",
		ApprovalDate: "06/10/2025",
	})
	if err == nil {
		t.Fatalf("expected invalid date format to be rejected")
	}
}

func TestMaterialCreateAcceptsValidSubmission(t *testing.T) {
	svc := newMaterialTestService(t)

	m, err := svc.Create(context.Background(), "user-1", &CreateMaterialRequest{
		MaterialType: "Cement",
		ApprovalDate: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ApprovalStatus != entity.ApprovalPending {
		t.Fatalf("status = %q, want %q", m.ApprovalStatus, entity.ApprovalPending)
	}
}

func TestMaterialCreateWithoutDate(t *testing.T) {
	svc := newMaterialTestService(t)

	if _, err := svc.Create(context.Background(), "user-1", &CreateMaterialRequest{
		MaterialType: "Steel",
	}); err != nil {
		t.Fatalf("missing optional date should not block: %v", err)
	}
}
