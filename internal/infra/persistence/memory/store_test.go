package memory

import (
	"context"
	"testing"

	"draftstore/pkg/domain"
)

type doc struct {
	Title string
	Tags  []string
}

func cloneDoc(d doc) doc {
	d.Tags = append([]string(nil), d.Tags...)
	return d
}

func TestStoreAddGetUpdateRemove(t *testing.T) {
	ctx := context.Background()
	s := New[string](cloneDoc)

	if err := s.Add(ctx, "a", doc{Title: "one"}); err != nil {
		t.Fatalf("expected add to succeed, got %v", err)
	}
	if err := s.Add(ctx, "a", doc{}); err == nil {
		t.Fatal("expected duplicate add to fail")
	}
	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || v.Title != "one" {
		t.Fatalf("expected stored doc, got %v %v %v", v, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("expected missing key to report absent")
	}

	if err := s.Update(ctx, "a", doc{Title: "two"}); err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
	if err := s.Update(ctx, "missing", doc{}); err == nil {
		t.Fatal("expected update of missing key to fail")
	}

	removed, err := s.Remove(ctx, "a")
	if err != nil || !removed {
		t.Fatalf("expected remove to succeed, got %v %v", removed, err)
	}
	removed, err = s.Remove(ctx, "a")
	if err != nil || removed {
		t.Fatalf("expected second remove to report absent, got %v %v", removed, err)
	}
}

func TestStoreSnapshotOrderAndIsolation(t *testing.T) {
	ctx := context.Background()
	s := New[string](cloneDoc)
	for _, k := range []string{"c", "a", "b"} {
		if err := s.Add(ctx, k, doc{Title: k, Tags: []string{"t"}}); err != nil {
			t.Fatalf("expected add to succeed, got %v", err)
		}
	}
	recs, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("expected snapshot to succeed, got %v", err)
	}
	if len(recs) != 3 || recs[0].Key != "c" || recs[1].Key != "a" || recs[2].Key != "b" {
		t.Fatalf("expected insertion order [c a b], got %v", recs)
	}
	recs[0].Value.Tags[0] = "mutated"
	again, _ := s.Snapshot(ctx)
	if again[0].Value.Tags[0] != "t" {
		t.Fatal("expected snapshot values cloned")
	}
}

func TestStoreImportExportState(t *testing.T) {
	s := New[string](cloneDoc)
	s.ImportState([]domain.Record[string, doc]{
		{Key: "x", Value: doc{Title: "ex"}},
		{Key: "y", Value: doc{Title: "why"}},
	})
	out := s.ExportState()
	if len(out) != 2 || out[0].Key != "x" || out[1].Value.Title != "why" {
		t.Fatalf("expected round-tripped state, got %v", out)
	}
	// Import replaces, never merges.
	s.ImportState([]domain.Record[string, doc]{{Key: "z", Value: doc{}}})
	out = s.ExportState()
	if len(out) != 1 || out[0].Key != "z" {
		t.Fatalf("expected replaced state, got %v", out)
	}
}
