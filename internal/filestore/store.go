// Package filestore defines the interface for the blob store behind
// entfiles uploads and downloads.
//
// Callers depend only on this package — never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	if err := store.EnsureBucket(ctx, cfg.Bucket); err != nil { ... }
package filestore

import (
	"context"
	"io"
	"time"
)

// Store is the interface all blob store providers implement.
// Implementations must be safe for concurrent use.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// BucketExists reports whether bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// EnsureBucket creates bucket when it does not exist yet. Idempotent.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject writes size bytes read from r under key.
	// size may be -1 when unknown, at the cost of a multipart upload.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (*ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key inside bucket.
	// A missing object is reported here, before any byte is read.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PresignGetURL returns a URL that allows anyone to download
	// the object at key inside bucket without credentials until ttl elapses.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
