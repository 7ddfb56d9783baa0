package assets

import (
	"encoding/json"

	"draftstore/pkg/domain"
)

// JSONCodec serializes payloads as JSON. Format-specific codecs are supplied
// by callers; this one exists for tests and simple deployments.
type JSONCodec[T any] struct{}

var _ domain.Codec[struct{}] = JSONCodec[struct{}]{}

// Marshal implements domain.Codec.
func (JSONCodec[T]) Marshal(v T) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Unmarshal implements domain.Codec.
func (JSONCodec[T]) Unmarshal(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

// ContentType implements domain.Codec.
func (JSONCodec[T]) ContentType() string { return "application/json" }
