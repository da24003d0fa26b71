package glosa

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/db/dbtest"
)

func TestRepoSQLite_Lifecycle(t *testing.T) {
	store := dbtest.NewStore(t)
	uid := dbtest.SeedUser(t, store, "auditor")
	aihID := dbtest.SeedAIH(t, store, "1234567890123", "1000.00", "07/2025", uid)
	svc := NewService(NewRepo(store), zerolog.Nop())
	ctx := context.Background()

	g, err := svc.Create(ctx, aihID, CreateInput{Line: "L1", Type: "T", Professional: "P", Quantity: 2})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	active, err := svc.ListActive(ctx, aihID)
	if err != nil {
		t.Fatalf("ListActive() error: %v", err)
	}
	if len(active) != 1 || active[0].Quantity != 2 || !active[0].Active {
		t.Fatalf("unexpected active glosas %+v", active)
	}

	if err := svc.Deactivate(ctx, g.ID); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}
	active, _ = svc.ListActive(ctx, aihID)
	if len(active) != 0 {
		t.Errorf("expected no active glosas after deactivate, got %d", len(active))
	}
	row, err := store.FetchOne(ctx, `SELECT ativa FROM glosas WHERE id = ?`, g.ID)
	if err != nil {
		t.Fatalf("expected row to be retained: %v", err)
	}
	if row.Bool("ativa") {
		t.Error("expected ativa = 0")
	}
}

func TestRepoSQLite_UnknownAIH(t *testing.T) {
	store := dbtest.NewStore(t)
	svc := NewService(NewRepo(store), zerolog.Nop())
	_, err := svc.Create(context.Background(), 42, CreateInput{Line: "L", Type: "T", Professional: "P"})
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRepoSQLite_TypeCatalog(t *testing.T) {
	store := dbtest.NewStore(t)
	svc := NewService(NewRepo(store), zerolog.Nop())
	ctx := context.Background()

	seeded, err := svc.ListTypes(ctx)
	if err != nil {
		t.Fatalf("ListTypes() error: %v", err)
	}
	if len(seeded) < 3 {
		t.Fatalf("expected seeded glosa types, got %d", len(seeded))
	}

	gt, err := svc.CreateType(ctx, TypeInput{Description: "Zeta duplicada"})
	if err != nil {
		t.Fatalf("CreateType() error: %v", err)
	}
	_, err = svc.CreateType(ctx, TypeInput{Description: "Zeta duplicada"})
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConflictError for duplicate, got %v", err)
	}

	types, _ := svc.ListTypes(ctx)
	if len(types) != len(seeded)+1 {
		t.Errorf("expected cache to be invalidated after insert, got %d types", len(types))
	}
	if err := svc.DeleteType(ctx, gt.ID); err != nil {
		t.Fatalf("DeleteType() error: %v", err)
	}
}
