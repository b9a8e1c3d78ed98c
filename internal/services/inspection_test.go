package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearlane/inspection-backend/internal/repos"
	"github.com/clearlane/inspection-backend/internal/testutil"
	"github.com/clearlane/inspection-backend/internal/types"
	"github.com/clearlane/inspection-backend/internal/utils"
)

func newInspectionService(t *testing.T) (InspectionService, repos.InspectionRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewInspectionRepo(db, log)
	svc := NewInspectionService(db, log, repo, NewTokenService(log, DefaultTokenTTL), utils.NewKeyedMutex())
	return svc, repo
}

func TestInspectionCreate(t *testing.T) {
	svc, repo := newInspectionService(t)
	ctx := context.Background()

	created, token, expiry, err := svc.Create(ctx, &types.Inspection{
		OrderRef:    "  ORD-42 ",
		BuyerEmail:  " buyer@example.com ",
		DeclaredVIN: " 1hgcm82633a004352 ",
		SellerZIP:   "10001",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" {
		t.Fatalf("no upload token returned")
	}
	if created.Status != types.InspectionStatusPending {
		t.Fatalf("status: %q", created.Status)
	}
	if created.OrderRef != "ORD-42" || created.BuyerEmail != "buyer@example.com" {
		t.Fatalf("inputs not normalized: %+v", created)
	}
	if created.DeclaredVIN != "1HGCM82633A004352" {
		t.Fatalf("vin not normalized: %q", created.DeclaredVIN)
	}
	if created.TokenHash == "" || created.TokenHash == token {
		t.Fatalf("plaintext token persisted")
	}
	if time.Until(expiry) <= 0 {
		t.Fatalf("expiry in the past: %v", expiry)
	}

	stored, err := repo.GetByID(ctx, nil, created.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.TokenHash != created.TokenHash {
		t.Fatalf("token hash not stored")
	}
}

func TestInspectionGet(t *testing.T) {
	svc, _ := newInspectionService(t)
	ctx := context.Background()

	created, _, _, err := svc.Create(ctx, &types.Inspection{DeclaredVIN: "1HGCM82633A004352"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("wrong inspection: %v", got.ID)
	}
	if got.Uploads == nil {
		// zero uploads is an empty slice after preload, not nil rows
		t.Logf("uploads preload returned nil for empty set")
	}

	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestInspectionApprove(t *testing.T) {
	svc, repo := newInspectionService(t)
	ctx := context.Background()

	created, _, _, err := svc.Create(ctx, &types.Inspection{DeclaredVIN: "1HGCM82633A004352"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Pending inspections have no evidence yet and cannot be approved.
	if _, err := svc.Approve(ctx, created.ID); err == nil {
		t.Fatalf("approved a pending inspection")
	}

	if err := repo.UpdateFields(ctx, nil, created.ID, map[string]interface{}{
		"status": types.InspectionStatusSubmitted,
	}); err != nil {
		t.Fatalf("set submitted: %v", err)
	}
	approved, err := svc.Approve(ctx, created.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != types.InspectionStatusCompleted {
		t.Fatalf("status: %q", approved.Status)
	}

	// Flagged inspections can be approved after manual review.
	flagged, _, _, err := svc.Create(ctx, &types.Inspection{DeclaredVIN: "5YJ3E1EA7KF317000"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateFields(ctx, nil, flagged.ID, map[string]interface{}{
		"status": types.InspectionStatusFlagged,
	}); err != nil {
		t.Fatalf("set flagged: %v", err)
	}
	if _, err := svc.Approve(ctx, flagged.ID); err != nil {
		t.Fatalf("Approve (flagged): %v", err)
	}

	if _, err := svc.Approve(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
}
