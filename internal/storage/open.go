// Package storage selects concrete persistence backends from configuration.
package storage

import (
	"context"
	"fmt"

	"draftstore/internal/blob"
	blobs3 "draftstore/internal/blob/s3"
	"draftstore/internal/config"
	"draftstore/internal/infra/persistence/memory"
	"draftstore/internal/infra/persistence/postgres"
	"draftstore/internal/infra/persistence/sqlite"
	"draftstore/pkg/domain"
)

// Driver identifies a concrete table repository implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Open selects a table repository backend from cfg. Defaults to sqlite when
// the driver is unset. The returned close function releases backend resources
// and is never nil.
func Open[K comparable, V any](ctx context.Context, cfg config.StorageConfig, bucket string, clone func(V) V) (domain.TableRepository[K, V], func() error, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memory.New[K](clone), noClose, nil
	case DriverSQLite:
		st, err := sqlite.New[K](cfg.SQLitePath, bucket, clone)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case DriverPostgres:
		st, err := postgres.New[K](ctx, cfg.PostgresDSN, bucket, clone)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenBlob selects a blob store for asset payloads from cfg. Defaults to the
// filesystem driver when unset.
func OpenBlob(ctx context.Context, cfg config.AssetsConfig) (blob.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(blob.DriverFilesystem)
	}
	switch blob.Driver(driver) {
	case blob.DriverFilesystem:
		return blob.NewFilesystem(cfg.Root)
	case blob.DriverMemory:
		return blob.NewMemory(), nil
	case blob.DriverS3:
		return blobs3.New(ctx, blobs3.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown asset driver %s", driver)
	}
}

func noClose() error { return nil }
