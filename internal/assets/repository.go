// Package assets implements the file-backed asset repository: payload blobs
// plus metadata side-channel objects, a path index, and lazy payload loading.
// The asset identity lives in the metadata file, so renaming or moving a
// payload on disk never changes which asset it is.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"draftstore/internal/blob"
	"draftstore/pkg/domain"
)

// MetadataSuffix is appended to a payload path to form its side-channel key.
const MetadataSuffix = ".asset.json"

const metadataContentType = "application/json"

type record struct {
	path string
	meta domain.AssetMetadata
	size int64
}

type opKind int

const (
	opAdd opKind = iota
	opUpdate
	opRemove
)

type pendingOp[T any] struct {
	kind  opKind
	asset domain.Asset[T]
	path  string
	id    domain.AssetID
}

// Repository stores assets in a blob store, staging mutations until Save.
type Repository[T any] struct {
	mu      sync.RWMutex
	store   blob.Store
	codec   domain.Codec[T]
	byID    map[domain.AssetID]*record
	byPath  map[string]domain.AssetID
	pending []pendingOp[T]
}

var _ domain.AssetRepository[struct{}] = (*Repository[struct{}])(nil)

// Open constructs a repository over the blob store and indexes every asset
// already present.
func Open[T any](ctx context.Context, store blob.Store, codec domain.Codec[T]) (*Repository[T], error) {
	if store == nil {
		return nil, errors.New("assets: blob store required")
	}
	if codec == nil {
		return nil, errors.New("assets: codec required")
	}
	r := &Repository[T]{
		store:  store,
		codec:  codec,
		byID:   make(map[domain.AssetID]*record),
		byPath: make(map[string]domain.AssetID),
	}
	if err := r.Reindex(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reindex rebuilds the path and identity indexes from the metadata files in
// storage. Identities are read from the side-channel, never derived from
// paths, so an asset renamed outside the tool keeps its AssetID.
func (r *Repository[T]) Reindex(ctx context.Context) error {
	infos, err := r.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	byID := make(map[domain.AssetID]*record)
	byPath := make(map[string]domain.AssetID)
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, MetadataSuffix) {
			continue
		}
		meta, err := r.readMetadata(ctx, info.Key)
		if err != nil {
			return err
		}
		path := strings.TrimSuffix(info.Key, MetadataSuffix)
		var size int64
		if payload, err := r.store.Head(ctx, path); err == nil {
			size = payload.Size
		}
		byID[meta.ID] = &record{path: path, meta: meta, size: size}
		byPath[path] = meta.ID
	}
	r.mu.Lock()
	r.byID = byID
	r.byPath = byPath
	r.mu.Unlock()
	return nil
}

func (r *Repository[T]) readMetadata(ctx context.Context, key string) (domain.AssetMetadata, error) {
	_, rc, err := r.store.Get(ctx, key)
	if err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("read metadata %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("read metadata %s: %w", key, err)
	}
	var meta domain.AssetMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("decode metadata %s: %w", key, err)
	}
	if meta.ID == "" {
		return domain.AssetMetadata{}, fmt.Errorf("metadata %s missing asset id", key)
	}
	return meta, nil
}

// Summaries lists every indexed asset sorted by path, without loading payloads.
func (r *Repository[T]) Summaries(context.Context) ([]domain.AssetSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AssetSummary, 0, len(r.byID))
	for id, rec := range r.byID {
		out = append(out, domain.AssetSummary{
			ID:       id,
			Path:     rec.path,
			Metadata: rec.meta.Clone(),
			Size:     rec.size,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Load deserializes the payload for one asset.
func (r *Repository[T]) Load(ctx context.Context, id domain.AssetID) (domain.Asset[T], error) {
	r.mu.RLock()
	rec, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Asset[T]{}, fmt.Errorf("%w: asset %s", domain.ErrNotFound, id)
	}
	_, rc, err := r.store.Get(ctx, rec.path)
	if err != nil {
		return domain.Asset[T]{}, fmt.Errorf("read payload %s: %w", rec.path, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return domain.Asset[T]{}, fmt.Errorf("read payload %s: %w", rec.path, err)
	}
	data, err := r.codec.Unmarshal(b)
	if err != nil {
		return domain.Asset[T]{}, fmt.Errorf("decode payload %s: %w", rec.path, err)
	}
	return domain.Asset[T]{ID: id, Metadata: rec.meta.Clone(), Data: data}, nil
}

// FindByPath resolves a payload path to the asset identity stored there.
func (r *Repository[T]) FindByPath(_ context.Context, path string) (domain.AssetID, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	return id, ok, nil
}

// PathOf returns the payload path currently holding the asset.
func (r *Repository[T]) PathOf(id domain.AssetID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return rec.path, true
}

// Add stages a new asset to be written at path on the next Save.
func (r *Repository[T]) Add(_ context.Context, asset domain.Asset[T], path string) error {
	if path == "" {
		return errors.New("assets: path required")
	}
	if strings.HasSuffix(path, MetadataSuffix) {
		return fmt.Errorf("assets: path %q collides with metadata suffix", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPath[path]; exists {
		return fmt.Errorf("asset path %q already in use", path)
	}
	if _, exists := r.byID[asset.ID]; exists {
		return fmt.Errorf("asset %s already exists", asset.ID)
	}
	r.pending = append(r.pending, pendingOp[T]{kind: opAdd, asset: asset, path: path, id: asset.ID})
	return nil
}

// Update stages new payload and metadata for an existing asset.
func (r *Repository[T]) Update(_ context.Context, asset domain.Asset[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[asset.ID]
	if !ok {
		return fmt.Errorf("%w: asset %s", domain.ErrNotFound, asset.ID)
	}
	r.pending = append(r.pending, pendingOp[T]{kind: opUpdate, asset: asset, path: rec.path, id: asset.ID})
	return nil
}

// Remove stages deletion of the asset's payload and metadata files.
func (r *Repository[T]) Remove(_ context.Context, id domain.AssetID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	r.pending = append(r.pending, pendingOp[T]{kind: opRemove, path: rec.path, id: id})
	return true, nil
}

// Save flushes staged operations to the blob store in order. On failure the
// unflushed tail stays staged, so retrying Save resumes where it stopped.
func (r *Repository[T]) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.pending) > 0 {
		op := r.pending[0]
		if err := r.flush(ctx, op); err != nil {
			return err
		}
		r.pending = r.pending[1:]
	}
	r.pending = nil
	return nil
}

func (r *Repository[T]) flush(ctx context.Context, op pendingOp[T]) error {
	switch op.kind {
	case opAdd, opUpdate:
		payload, err := r.codec.Marshal(op.asset.Data)
		if err != nil {
			return fmt.Errorf("encode payload %s: %w", op.path, err)
		}
		metaBytes, err := json.MarshalIndent(op.asset.Metadata, "", "  ")
		if err != nil {
			return fmt.Errorf("encode metadata %s: %w", op.path, err)
		}
		info, err := r.store.Write(ctx, op.path, strings.NewReader(string(payload)),
			blob.PutOptions{ContentType: r.codec.ContentType()})
		if err != nil {
			return fmt.Errorf("write payload %s: %w", op.path, err)
		}
		if _, err := r.store.Write(ctx, op.path+MetadataSuffix, strings.NewReader(string(metaBytes)),
			blob.PutOptions{ContentType: metadataContentType}); err != nil {
			return fmt.Errorf("write metadata %s: %w", op.path, err)
		}
		r.byID[op.id] = &record{path: op.path, meta: op.asset.Metadata.Clone(), size: info.Size}
		r.byPath[op.path] = op.id
	case opRemove:
		if _, err := r.store.Delete(ctx, op.path); err != nil {
			return fmt.Errorf("delete payload %s: %w", op.path, err)
		}
		if _, err := r.store.Delete(ctx, op.path+MetadataSuffix); err != nil {
			return fmt.Errorf("delete metadata %s: %w", op.path, err)
		}
		delete(r.byID, op.id)
		delete(r.byPath, op.path)
	}
	return nil
}
