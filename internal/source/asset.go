package source

import (
	"context"
	"fmt"
	"time"

	"draftstore/internal/observe"
	"draftstore/internal/track"
	"draftstore/pkg/domain"
)

// AssetSource edits file-backed assets keyed by their stable identity. The
// identity is assigned once at AddNew and never derived from the file path,
// so renames and moves on disk do not orphan pending edits. Payloads load
// lazily: listing touches only metadata summaries, and an asset's baseline is
// seeded the first time it is read or edited.
type AssetSource[T any] struct {
	repo    domain.AssetRepository[T]
	tracker *track.Tracker[domain.AssetID, domain.Asset[T]]
	metrics observe.MetricsRecorder
	paths   map[domain.AssetID]string   // target paths for pending adds
	known   map[domain.AssetID]struct{} // identities seen in repository summaries
	nowFn   func() time.Time
	newID   func() domain.AssetID
}

// NewAsset constructs an asset source from the repository and payload schema.
func NewAsset[T any](repo domain.AssetRepository[T], data *domain.Schema[T]) *AssetSource[T] {
	return &AssetSource[T]{
		repo:    repo,
		tracker: track.New[domain.AssetID](domain.AssetSchema(data)),
		metrics: observe.NopMetricsRecorder{},
		paths:   make(map[domain.AssetID]string),
		known:   make(map[domain.AssetID]struct{}),
		nowFn:   func() time.Time { return time.Now().UTC() },
		newID:   domain.NewAssetID,
	}
}

// SetMetricsRecorder routes operation outcomes to rec.
func (s *AssetSource[T]) SetMetricsRecorder(rec observe.MetricsRecorder) {
	if rec == nil {
		rec = observe.NopMetricsRecorder{}
	}
	s.metrics = rec
}

// Load lists the repository's summaries to establish the visible asset set.
// Payloads are not deserialized here.
func (s *AssetSource[T]) Load(ctx context.Context) error {
	summaries, err := s.repo.Summaries(ctx)
	if err != nil {
		return fmt.Errorf("summaries: %w", err)
	}
	for _, sum := range summaries {
		s.known[sum.ID] = struct{}{}
	}
	return nil
}

// ensure seeds the tracker baseline for one persisted asset on first touch.
func (s *AssetSource[T]) ensure(ctx context.Context, id domain.AssetID) error {
	if _, tracked := s.tracker.State(id); tracked {
		return nil
	}
	if _, ok := s.known[id]; !ok {
		return nil // unseen identity: callers treat edits as no-ops
	}
	asset, err := s.repo.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	s.tracker.InitializeBaseline([]domain.Record[domain.AssetID, domain.Asset[T]]{
		{Key: id, Value: asset},
	})
	return nil
}

// AddNew allocates a fresh identity and metadata for data, to be written at
// filePath on the next save. The path must not already hold an asset.
func (s *AssetSource[T]) AddNew(ctx context.Context, data T, filePath string) (domain.Asset[T], error) {
	if _, taken, err := s.repo.FindByPath(ctx, filePath); err != nil {
		return domain.Asset[T]{}, fmt.Errorf("find by path: %w", err)
	} else if taken {
		return domain.Asset[T]{}, fmt.Errorf("%w: path %q already holds an asset", domain.ErrDuplicateKey, filePath)
	}
	for _, p := range s.paths {
		if p == filePath {
			return domain.Asset[T]{}, fmt.Errorf("%w: path %q already holds a pending asset", domain.ErrDuplicateKey, filePath)
		}
	}
	id := s.newID()
	now := s.nowFn()
	asset := domain.Asset[T]{
		ID: id,
		Metadata: domain.AssetMetadata{
			ID:         id,
			Version:    1,
			CreatedAt:  now,
			ModifiedAt: now,
		},
		Data: data,
	}
	if err := s.tracker.TrackAdd(id, asset); err != nil {
		return domain.Asset[T]{}, err
	}
	s.paths[id] = filePath
	return asset, nil
}

// Delete marks an asset for removal; deleting a pending add discards it.
// Persisted assets that were never read get their baseline seeded first, so
// deletion works without a prior Get.
func (s *AssetSource[T]) Delete(ctx context.Context, id domain.AssetID) error {
	if err := s.ensure(ctx, id); err != nil {
		return err
	}
	s.tracker.TrackDelete(id)
	if _, pending := s.paths[id]; pending {
		if state, tracked := s.tracker.State(id); !tracked || state != domain.StateAdded {
			delete(s.paths, id)
		}
	}
	return nil
}

// Get returns the working copy when tracked and not deleted, loading the
// baseline from the repository on first access.
func (s *AssetSource[T]) Get(ctx context.Context, id domain.AssetID) (domain.Asset[T], bool, error) {
	if err := s.ensure(ctx, id); err != nil {
		return domain.Asset[T]{}, false, err
	}
	state, tracked := s.tracker.State(id)
	if !tracked || state == domain.StateDeleted {
		return domain.Asset[T]{}, false, nil
	}
	asset, _ := s.tracker.Working(id)
	return asset, true, nil
}

// SetProperty edits one payload field of the asset's working copy.
func (s *AssetSource[T]) SetProperty(ctx context.Context, id domain.AssetID, property string, value any) (bool, error) {
	if err := s.ensure(ctx, id); err != nil {
		return false, err
	}
	return s.tracker.TrackPropertyChange(id, property, value)
}

// UpdateMetadata applies fn to a copy of the asset's metadata and routes the
// result through the tracker, bumping ModifiedAt. This is the only mutation
// path for metadata.
func (s *AssetSource[T]) UpdateMetadata(ctx context.Context, id domain.AssetID, fn func(*domain.AssetMetadata)) (bool, error) {
	if err := s.ensure(ctx, id); err != nil {
		return false, err
	}
	asset, ok := s.tracker.Working(id)
	if !ok {
		return false, nil
	}
	meta := asset.Metadata.Clone()
	fn(&meta)
	meta.ID = id // identity is immutable
	meta.ModifiedAt = s.nowFn()
	return s.tracker.TrackPropertyChange(id, domain.MetadataProperty, meta)
}

// Summaries lists the visible assets: persisted summaries minus pending
// deletes, plus pending adds with their target paths.
func (s *AssetSource[T]) Summaries(ctx context.Context) ([]domain.AssetSummary, error) {
	persisted, err := s.repo.Summaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("summaries: %w", err)
	}
	deleted := make(map[domain.AssetID]struct{})
	for _, id := range s.tracker.DeletedKeys() {
		deleted[id] = struct{}{}
	}
	out := make([]domain.AssetSummary, 0, len(persisted))
	for _, sum := range persisted {
		if _, gone := deleted[sum.ID]; gone {
			continue
		}
		out = append(out, sum)
	}
	for _, id := range s.tracker.AddedKeys() {
		asset, _ := s.tracker.Working(id)
		out = append(out, domain.AssetSummary{
			ID:       id,
			Path:     s.paths[id],
			Metadata: asset.Metadata,
		})
	}
	return out, nil
}

// State returns the asset's change state.
func (s *AssetSource[T]) State(id domain.AssetID) (domain.ChangeState, bool) {
	return s.tracker.State(id)
}

// IsPropertyModified reports per-property divergence.
func (s *AssetSource[T]) IsPropertyModified(id domain.AssetID, property string) bool {
	return s.tracker.IsPropertyModified(id, property)
}

// ModifiedProperties returns the diverging property names for an asset.
func (s *AssetSource[T]) ModifiedProperties(id domain.AssetID) []string {
	return s.tracker.ModifiedProperties(id)
}

// HasModifications reports whether any asset has pending changes.
func (s *AssetSource[T]) HasModifications() bool { return s.tracker.HasChanges() }

// OnModifiedStateChanged subscribes to has-changes flips.
func (s *AssetSource[T]) OnModifiedStateChanged(fn func(bool)) func() {
	return s.tracker.OnModifiedStateChanged(fn)
}

// Revert discards every pending change.
func (s *AssetSource[T]) Revert() {
	start := time.Now()
	s.tracker.Revert()
	for id := range s.paths {
		if state, tracked := s.tracker.State(id); !tracked || state != domain.StateAdded {
			delete(s.paths, id)
		}
	}
	s.metrics.Observe(context.Background(), "revert", true, time.Since(start))
}

// RevertKey discards one asset's pending changes.
func (s *AssetSource[T]) RevertKey(id domain.AssetID) {
	start := time.Now()
	s.tracker.RevertKey(id)
	if state, tracked := s.tracker.State(id); !tracked || state != domain.StateAdded {
		delete(s.paths, id)
	}
	s.metrics.Observe(context.Background(), "revert", true, time.Since(start))
}

// Save fans pending changes out to the repository: added assets are written
// to their new files, modified assets to their existing files, and deleted
// assets have payload and metadata files removed. The repository commits
// once, then the tracker rebases. Failure leaves the tracker untouched.
func (s *AssetSource[T]) Save(ctx context.Context) (changes []domain.Change[domain.AssetID, domain.Asset[T]], err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe(ctx, "save", err == nil, time.Since(start))
	}()

	changes = s.tracker.Changes()
	for _, ch := range changes {
		switch ch.Action {
		case domain.ActionAdd:
			if err = s.repo.Add(ctx, *ch.After, s.paths[ch.Key]); err != nil {
				return nil, fmt.Errorf("add %s: %w", ch.Key, err)
			}
		case domain.ActionUpdate:
			if err = s.repo.Update(ctx, *ch.After); err != nil {
				return nil, fmt.Errorf("update %s: %w", ch.Key, err)
			}
		case domain.ActionRemove:
			if _, err = s.repo.Remove(ctx, ch.Key); err != nil {
				return nil, fmt.Errorf("remove %s: %w", ch.Key, err)
			}
		}
	}
	if err = s.repo.Save(ctx); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	s.tracker.Rebase()
	for _, ch := range changes {
		switch ch.Action {
		case domain.ActionAdd:
			s.known[ch.Key] = struct{}{}
			delete(s.paths, ch.Key)
		case domain.ActionRemove:
			delete(s.known, ch.Key)
		}
	}
	return changes, nil
}
