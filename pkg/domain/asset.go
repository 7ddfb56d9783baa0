package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AssetID is the stable identity of a file-backed asset. It is assigned once
// when the asset is first added and survives renames and moves; the file path
// is never part of the identity.
type AssetID string

// NewAssetID allocates a fresh random asset identity.
func NewAssetID() AssetID { return AssetID(uuid.NewString()) }

// AssetMetadata is the descriptive side-channel record persisted next to an
// asset's payload file. It is created when the asset is added and mutated only
// through an explicit metadata update.
type AssetMetadata struct {
	ID          AssetID           `json:"id"`
	DisplayName string            `json:"display_name,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	ModifiedAt  time.Time         `json:"modified_at"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m AssetMetadata) Clone() AssetMetadata {
	cp := m
	cp.Tags = append([]string(nil), m.Tags...)
	if m.Custom != nil {
		cp.Custom = make(map[string]string, len(m.Custom))
		for k, v := range m.Custom {
			cp.Custom[k] = v
		}
	}
	return cp
}

// Asset pairs an identity and metadata with a typed payload. The ID is
// immutable once assigned; Metadata and Data are owned exclusively by the
// asset value holding them.
type Asset[T any] struct {
	ID       AssetID
	Metadata AssetMetadata
	Data     T
}

// AssetSummary is a metadata-only projection for listings that must not force
// payload deserialization.
type AssetSummary struct {
	ID       AssetID
	Path     string
	Metadata AssetMetadata
	Size     int64
}

// MetadataProperty is the synthetic property name under which asset metadata
// edits flow through the change tracker.
const MetadataProperty = "Metadata"

// AssetSchema lifts a payload schema into a schema for the full asset. Every
// payload property keeps its name and routes to Data; metadata is exposed as
// one additional property so metadata-only edits mark the asset modified and
// revert like any field edit. The asset ID is deliberately not a property.
func AssetSchema[T any](data *Schema[T]) *Schema[Asset[T]] {
	s := NewSchema(func(a Asset[T]) Asset[T] {
		return Asset[T]{ID: a.ID, Metadata: a.Metadata.Clone(), Data: data.Clone(a.Data)}
	})
	for _, name := range data.PropertyNames() {
		s.Property(name, liftAccessor(data, name))
	}
	s.Property(MetadataProperty, PropertyAccessor[Asset[T]]{
		Get: func(a Asset[T]) any { return a.Metadata.Clone() },
		Set: func(a *Asset[T], value any) error {
			meta, ok := value.(AssetMetadata)
			if !ok {
				return errMetadataType
			}
			a.Metadata = meta.Clone()
			return nil
		},
	})
	return s
}

func liftAccessor[T any](data *Schema[T], name string) PropertyAccessor[Asset[T]] {
	return PropertyAccessor[Asset[T]]{
		Get: func(a Asset[T]) any {
			v, _ := data.Get(a.Data, name)
			return v
		},
		Set: func(a *Asset[T], value any) error {
			return data.Set(&a.Data, name, value)
		},
		Equal: func(x, y any) bool {
			return data.PropertyEqual(name, x, y)
		},
	}
}

var errMetadataType = errors.New("draftstore: metadata property requires an AssetMetadata value")
