// Package memory provides a process-local filestore.Store. Objects live in
// a map and vanish with the process; it backs the "memory" storage provider
// and the service tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/filestore"
)

// Store is an in-memory filestore.Store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*blob
	now     func() time.Time
}

type blob struct {
	data []byte
	info filestore.ObjectInfo
}

var _ filestore.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string]*blob), now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

func (s *Store) BucketExists(_ context.Context, bucket string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[bucket]
	return ok, nil
}

func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	if bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "bucket name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]*blob)
	}
	return nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read object body", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to put object", err)
	}
	if size >= 0 && int64(buf.Len()) != size {
		return nil, errs.New(errs.ErrKindInvalidInput, "object size mismatch")
	}

	sum := md5.Sum(buf.Bytes())
	b := &blob{
		data: buf.Bytes(),
		info: filestore.ObjectInfo{
			Key:          key,
			Size:         int64(buf.Len()),
			ContentType:  opts.ContentType,
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: s.now().UTC(),
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "bucket does not exist")
	}
	objects[key] = b

	info := b.info
	return &info, nil
}

func (s *Store) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	b, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := b.info
	return &object{Reader: bytes.NewReader(b.data), info: &info}, nil
}

func (s *Store) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	b, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := b.info
	return &info, nil
}

// PresignGetURL returns a memory:// URL naming the object and its expiry.
// The URL is not servable; it only identifies what was signed.
func (s *Store) PresignGetURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if _, err := s.lookup(bucket, key); err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {strconv.FormatInt(s.now().Add(ttl).Unix(), 10)}}.Encode(),
	}
	return u.String(), nil
}

// Delete removes an object. Missing objects are ignored.
func (s *Store) Delete(bucket, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets[bucket], key)
}

// Len returns the number of objects in bucket.
func (s *Store) Len(bucket string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[bucket])
}

func (s *Store) lookup(bucket, key string) (*blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "bucket does not exist")
	}
	b, ok := objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "object does not exist")
	}
	return b, nil
}

type object struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error                { return nil }
func (o *object) Info() *filestore.ObjectInfo { return o.info }
