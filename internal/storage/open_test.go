package storage

import (
	"context"
	"path/filepath"
	"testing"

	"draftstore/internal/blob"
	"draftstore/internal/config"
)

type note struct {
	Body string `json:"body"`
}

func cloneNote(n note) note { return n }

func TestOpenMemoryDriver(t *testing.T) {
	repo, closeFn, err := Open[string](context.Background(), config.StorageConfig{Driver: "memory"}, "notes", cloneNote)
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer func() { _ = closeFn() }()
	if repo == nil {
		t.Fatal("expected repository")
	}
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{SQLitePath: filepath.Join(t.TempDir(), "state.db")}
	repo, closeFn, err := Open[string](ctx, cfg, "notes", cloneNote)
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer func() { _ = closeFn() }()
	if err := repo.Add(ctx, "a", note{Body: "x"}); err != nil {
		t.Fatalf("expected add to succeed, got %v", err)
	}
	if err := repo.Save(ctx); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, _, err := Open[string](context.Background(), config.StorageConfig{Driver: "oracle"}, "notes", cloneNote); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenBlobDrivers(t *testing.T) {
	ctx := context.Background()

	memStore, err := OpenBlob(ctx, config.AssetsConfig{Driver: "memory"})
	if err != nil || memStore.Driver() != blob.DriverMemory {
		t.Fatalf("expected memory blob store, got %v (%v)", memStore, err)
	}

	fsStore, err := OpenBlob(ctx, config.AssetsConfig{Root: t.TempDir()})
	if err != nil || fsStore.Driver() != blob.DriverFilesystem {
		t.Fatalf("expected fs blob store by default, got %v (%v)", fsStore, err)
	}

	if _, err := OpenBlob(ctx, config.AssetsConfig{Driver: "tape"}); err == nil {
		t.Fatal("expected error for unknown asset driver")
	}

	// The s3 driver validates its bucket before touching the network.
	if _, err := OpenBlob(ctx, config.AssetsConfig{Driver: "s3"}); err == nil {
		t.Fatal("expected error for missing s3 bucket")
	}
}
