package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object key within the bucket.
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type recorded when the object was written.
	ContentType string

	// ETag is the object's entity tag, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading; for MinIO this also returns
// the underlying HTTP connection to the client's pool.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// PutOptions carries the optional attributes of a write.
type PutOptions struct {
	// ContentType is stored with the object and served back by presigned GETs.
	ContentType string

	// Filename, when set, is recorded so presigned downloads keep the
	// original name.
	Filename string
}
