package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// storeUnderTest runs the shared contract against each driver.
func storeUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("expected filesystem store, got %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("expected read to succeed, got %v", err)
	}
	return string(b)
}

func TestStoreContract(t *testing.T) {
	for name, s := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			info, err := s.Put(ctx, "dir/a.json", strings.NewReader(`{"x":1}`), PutOptions{ContentType: "application/json"})
			if err != nil {
				t.Fatalf("expected put to succeed, got %v", err)
			}
			if info.Key != "dir/a.json" || info.Size != 7 {
				t.Fatalf("expected info for stored blob, got %+v", info)
			}

			// Put is create-only.
			if _, err := s.Put(ctx, "dir/a.json", strings.NewReader("x"), PutOptions{}); err == nil {
				t.Fatal("expected second put to fail")
			}

			// Write replaces.
			if _, err := s.Write(ctx, "dir/a.json", strings.NewReader("replaced"), PutOptions{}); err != nil {
				t.Fatalf("expected write to succeed, got %v", err)
			}
			_, rc, err := s.Get(ctx, "dir/a.json")
			if err != nil {
				t.Fatalf("expected get to succeed, got %v", err)
			}
			if got := readAll(t, rc); got != "replaced" {
				t.Fatalf("expected replaced content, got %q", got)
			}

			if _, err := s.Head(ctx, "dir/a.json"); err != nil {
				t.Fatalf("expected head to succeed, got %v", err)
			}
			if _, err := s.Head(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if _, err := s.Write(ctx, "dir/b.json", strings.NewReader("b"), PutOptions{}); err != nil {
				t.Fatalf("expected write to succeed, got %v", err)
			}
			if _, err := s.Write(ctx, "other/c.json", strings.NewReader("c"), PutOptions{}); err != nil {
				t.Fatalf("expected write to succeed, got %v", err)
			}
			infos, err := s.List(ctx, "dir/")
			if err != nil {
				t.Fatalf("expected list to succeed, got %v", err)
			}
			if len(infos) != 2 || infos[0].Key != "dir/a.json" || infos[1].Key != "dir/b.json" {
				t.Fatalf("expected sorted dir/ keys, got %v", infos)
			}
			all, err := s.List(ctx, "")
			if err != nil || len(all) != 3 {
				t.Fatalf("expected 3 blobs, got %v (%v)", all, err)
			}

			removed, err := s.Delete(ctx, "dir/b.json")
			if err != nil || !removed {
				t.Fatalf("expected delete to succeed, got %v %v", removed, err)
			}
			removed, err = s.Delete(ctx, "dir/b.json")
			if err != nil || removed {
				t.Fatalf("expected second delete to report absent, got %v %v", removed, err)
			}
		})
	}
}

func TestFilesystemRejectsUnsafeKeys(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("expected filesystem store, got %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "a/../../b", "/abs/path"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("expected key %q rejected", key)
		}
	}
}

func TestFilesystemContentTypeFromExtension(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("expected filesystem store, got %v", err)
	}
	info, err := s.Write(context.Background(), "a.json", strings.NewReader("{}"), PutOptions{})
	if err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}
	if !strings.HasPrefix(info.ContentType, "application/json") {
		t.Fatalf("expected json content type, got %q", info.ContentType)
	}
}
