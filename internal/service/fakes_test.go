package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/entfiles/internal/filestore"
	"github.com/koustreak/entfiles/internal/filestore/memory"
	"github.com/koustreak/entfiles/internal/model"
)

const testBucket = "cours"

// MockFiles is a mock FileRepository.
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Insert(ctx context.Context, f *model.FileRecord) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFiles) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFiles) List(ctx context.Context) ([]model.FileRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

// MockUsers is a mock UserRepository.
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Insert(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// faultyStore is a memory store whose calls can be made to fail.
type faultyStore struct {
	*memory.Store

	mu         sync.Mutex
	putErr     error
	statErr    error
	presignErr error
	getErr     error
	presigns   int
	lastTTL    time.Duration
}

func newFaultyStore(t *testing.T) *faultyStore {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.EnsureBucket(context.Background(), testBucket))
	return &faultyStore{Store: s}
}

func (s *faultyStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	if s.putErr != nil {
		return nil, s.putErr
	}
	return s.Store.PutObject(ctx, bucket, key, r, size, opts)
}

func (s *faultyStore) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	if s.statErr != nil {
		return nil, s.statErr
	}
	return s.Store.StatObject(ctx, bucket, key)
}

func (s *faultyStore) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.GetObject(ctx, bucket, key)
}

func (s *faultyStore) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	s.presigns++
	s.lastTTL = ttl
	s.mu.Unlock()
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return s.Store.PresignGetURL(ctx, bucket, key, ttl)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
