package domain

import "context"

// Record pairs a key with its persisted value, in the repository's snapshot order.
type Record[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// TableRepository is the persistent collaborator behind a key-value data
// source. Implementations own durability and atomicity: Add, Update, and
// Remove stage or apply individual records, and Save commits everything since
// the last successful Save. A failed Save must leave the repository in a state
// where retrying the same operations is valid.
type TableRepository[K comparable, V any] interface {
	// Snapshot returns a read-only copy of the persisted records used to seed
	// tracker baselines. Mutating the returned slice must not affect the store.
	Snapshot(ctx context.Context) ([]Record[K, V], error)
	// Get retrieves a single persisted record.
	Get(ctx context.Context, key K) (V, bool, error)
	// Add inserts a new record; adding an existing key is an error.
	Add(ctx context.Context, key K, value V) error
	// Update replaces an existing record; updating a missing key is an error.
	Update(ctx context.Context, key K, value V) error
	// Remove deletes a record, reporting whether it existed.
	Remove(ctx context.Context, key K) (bool, error)
	// Save commits pending mutations durably.
	Save(ctx context.Context) error
}

// AssetRepository is the persistent collaborator behind an asset data source.
// It stores each asset as a payload file plus a metadata side-channel file,
// indexes assets by file path, and loads payloads lazily.
type AssetRepository[T any] interface {
	// Summaries lists every known asset without loading payloads.
	Summaries(ctx context.Context) ([]AssetSummary, error)
	// Load deserializes the full asset for the given identity.
	Load(ctx context.Context, id AssetID) (Asset[T], error)
	// FindByPath resolves a file path to the asset identity stored there.
	FindByPath(ctx context.Context, path string) (AssetID, bool, error)
	// Add stages a new asset to be written at path.
	Add(ctx context.Context, asset Asset[T], path string) error
	// Update stages new payload and metadata for an existing asset.
	Update(ctx context.Context, asset Asset[T]) error
	// Remove stages deletion of the asset's payload and metadata files.
	Remove(ctx context.Context, id AssetID) (bool, error)
	// Save flushes staged mutations to storage.
	Save(ctx context.Context) error
}

// Codec serializes asset payloads. Concrete formats are collaborator
// implementations; this core never parses file contents itself.
type Codec[T any] interface {
	Marshal(T) ([]byte, error)
	Unmarshal([]byte) (T, error)
	ContentType() string
}
