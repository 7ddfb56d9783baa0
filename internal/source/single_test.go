package source

import (
	"context"
	"errors"
	"testing"

	"draftstore/internal/infra/persistence/memory"
	"draftstore/pkg/domain"
)

func newSingleSource(t *testing.T, value item) (*SingleSource[item], *memory.Store[string, item]) {
	t.Helper()
	repo := memory.New[string](cloneItem)
	if err := repo.Add(context.Background(), SingleKey, value); err != nil {
		t.Fatalf("expected seed add to succeed, got %v", err)
	}
	src := NewSingle(repo, itemSchema())
	if err := src.Load(context.Background()); err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	return src, repo
}

func TestSingleLoadRequiresRecord(t *testing.T) {
	src := NewSingle(memory.New[string](cloneItem), itemSchema())
	err := src.Load(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty repository, got %v", err)
	}
}

func TestSingleAddDeleteUnsupported(t *testing.T) {
	src, _ := newSingleSource(t, item{Name: "cfg"})
	if err := src.Add(item{}); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Add, got %v", err)
	}
	if err := src.Delete(); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Delete, got %v", err)
	}
}

func TestSingleEditSaveRevert(t *testing.T) {
	ctx := context.Background()
	src, repo := newSingleSource(t, item{Name: "cfg", Size: 1})

	diverged, err := src.SetProperty("Size", 9)
	if err != nil || !diverged {
		t.Fatalf("expected divergence, got %v (%v)", diverged, err)
	}
	if src.State() != domain.StateModified {
		t.Fatalf("expected modified, got %s", src.State())
	}
	if !src.IsPropertyModified("Size") || src.IsPropertyModified("Name") {
		t.Fatal("expected only Size modified")
	}
	if got := src.ModifiedProperties(); len(got) != 1 || got[0] != "Size" {
		t.Fatalf("expected [Size], got %v", got)
	}

	src.Revert()
	if src.HasModifications() {
		t.Fatal("expected clean source after revert")
	}
	v, err := src.CurrentData(ctx)
	if err != nil || v.Size != 1 {
		t.Fatalf("expected size restored to 1, got %v %v", v, err)
	}

	if _, err := src.SetProperty("Name", "updated"); err != nil {
		t.Fatalf("expected edit to succeed, got %v", err)
	}
	if err := src.Save(ctx); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if src.State() != domain.StateUnchanged {
		t.Fatalf("expected unchanged after save, got %s", src.State())
	}
	persisted, _, err := repo.Get(ctx, SingleKey)
	if err != nil || persisted.Name != "updated" {
		t.Fatalf("expected persisted name updated, got %v %v", persisted, err)
	}
}

func TestSingleNotification(t *testing.T) {
	src, _ := newSingleSource(t, item{Size: 1})
	var calls []bool
	cancel := src.OnModifiedStateChanged(func(has bool) { calls = append(calls, has) })
	defer cancel()

	if _, err := src.SetProperty("Size", 2); err != nil {
		t.Fatalf("expected edit to succeed, got %v", err)
	}
	if _, err := src.SetProperty("Size", 1); err != nil {
		t.Fatalf("expected edit to succeed, got %v", err)
	}
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Fatalf("expected [true false], got %v", calls)
	}
}
