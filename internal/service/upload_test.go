package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
)

const pdfBody = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"

var (
	teacherID = auth.Identity{UserID: "11111111-1111-1111-1111-111111111111", Email: "prof@school.edu", Role: model.RoleTeacher}
	studentID = auth.Identity{UserID: "22222222-2222-2222-2222-222222222222", Email: "eleve@school.edu", Role: model.RoleStudent}
	adminID   = auth.Identity{UserID: "33333333-3333-3333-3333-333333333333", Email: "root@school.edu", Role: model.RoleAdmin}
)

type uploadFixture struct {
	svc     *UploadService
	store   *faultyStore
	files   *MockFiles
	staging string
	orphans prometheus.Counter
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	f := &uploadFixture{
		store:   newFaultyStore(t),
		files:   &MockFiles{},
		staging: t.TempDir(),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_orphans_total"}),
	}
	f.svc = NewUploadService(f.store, f.files, Options{
		Bucket:       testBucket,
		SignedURLTTL: 30 * time.Minute,
		StagingDir:   f.staging,
	}, logger.Nop())
	f.svc.orphans = f.orphans
	f.svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func (f *uploadFixture) assertStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_TeacherStoresBlobThenRecord(t *testing.T) {
	f := newUploadFixture(t)

	var stored *model.FileRecord
	f.files.On("Insert", mock.Anything, mock.AnythingOfType("*model.FileRecord")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*model.FileRecord)
			// blob must already exist when the record is written
			_, err := f.store.StatObject(context.Background(), testBucket, stored.StorageKey)
			assert.NoError(t, err)
		}).
		Return(nil)

	res, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "notes.pdf",
		Body:     strings.NewReader(pdfBody),
	})
	require.NoError(t, err)

	_, err = uuid.Parse(res.ID)
	require.NoError(t, err)
	require.NotNil(t, res.DownloadURL)
	assert.Contains(t, *res.DownloadURL, res.ID+"-notes.pdf")
	assert.Equal(t, 30*time.Minute, f.store.lastTTL)

	require.NotNil(t, stored)
	assert.Equal(t, res.ID, stored.ID)
	assert.Equal(t, "notes.pdf", stored.Title)
	assert.Equal(t, "", stored.Description)
	assert.Equal(t, teacherID.UserID, stored.OwnerID)
	assert.Equal(t, res.ID+"-notes.pdf", stored.StorageKey)
	assert.Equal(t, "notes.pdf", stored.OriginalFilename)
	assert.Equal(t, int64(len(pdfBody)), stored.Size)
	assert.Equal(t, "pdf", stored.FileType)
	assert.Equal(t, time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC), stored.CreatedAt)

	obj, err := f.store.GetObject(context.Background(), testBucket, stored.StorageKey)
	require.NoError(t, err)
	defer obj.Close()
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(body))
	assert.Equal(t, "application/pdf", obj.Info().ContentType)

	f.files.AssertExpectations(t)
	f.assertStagingEmpty(t)
}

func TestUpload_AdminWithTitleAndDescription(t *testing.T) {
	f := newUploadFixture(t)
	f.files.On("Insert", mock.Anything, mock.MatchedBy(func(r *model.FileRecord) bool {
		return r.Title == "Week 1" && r.Description == "intro" && r.FileType == "txt"
	})).Return(nil)

	_, err := f.svc.Upload(context.Background(), adminID, UploadRequest{
		Filename:    "week1.txt",
		Title:       "Week 1",
		Description: "intro",
		Body:        strings.NewReader("plain text"),
	})
	require.NoError(t, err)
	f.files.AssertExpectations(t)
}

func TestUpload_StudentForbidden(t *testing.T) {
	f := newUploadFixture(t)

	_, err := f.svc.Upload(context.Background(), studentID, UploadRequest{
		Filename: "notes.pdf",
		Body:     strings.NewReader(pdfBody),
	})
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Equal(t, 0, f.store.Len(testBucket))
	f.files.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestUpload_InvalidFilename(t *testing.T) {
	f := newUploadFixture(t)

	for _, name := range []string{"", "   ", "/", strings.Repeat("a", MaxFilenameLength+1)} {
		_, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
			Filename: name,
			Body:     strings.NewReader("x"),
		})
		assert.True(t, errs.IsInvalidInput(err), "filename %q", name)
	}
	assert.Equal(t, 0, f.store.Len(testBucket))
}

func TestUpload_FilenamePathStripped(t *testing.T) {
	f := newUploadFixture(t)
	f.files.On("Insert", mock.Anything, mock.MatchedBy(func(r *model.FileRecord) bool {
		return r.OriginalFilename == "passwd" && strings.HasSuffix(r.StorageKey, "-passwd")
	})).Return(nil)

	_, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: `..\..\etc/passwd`,
		Body:     strings.NewReader("x"),
	})
	require.NoError(t, err)
	f.files.AssertExpectations(t)
}

func TestUpload_BlobWriteFailureWritesNoRecord(t *testing.T) {
	f := newUploadFixture(t)
	f.store.putErr = errs.New(errs.ErrKindConnectionFailed, "minio down")

	_, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "notes.pdf",
		Body:     strings.NewReader(pdfBody),
	})
	require.Error(t, err)
	assert.Equal(t, errs.ErrKindStorageWrite, errs.KindOf(err))
	f.files.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	assert.Equal(t, float64(0), counterValue(t, f.orphans))
	f.assertStagingEmpty(t)
}

func TestUpload_MetadataFailureLeavesOrphan(t *testing.T) {
	f := newUploadFixture(t)
	f.files.On("Insert", mock.Anything, mock.Anything).
		Return(errs.New(errs.ErrKindConnectionFailed, "db down"))

	_, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "notes.pdf",
		Body:     strings.NewReader(pdfBody),
	})
	require.Error(t, err)
	assert.Equal(t, errs.ErrKindMetadataWrite, errs.KindOf(err))
	assert.Equal(t, 1, f.store.Len(testBucket))
	assert.Equal(t, float64(1), counterValue(t, f.orphans))
	f.assertStagingEmpty(t)
}

func TestUpload_PresignFailureStillSucceeds(t *testing.T) {
	f := newUploadFixture(t)
	f.store.presignErr = errors.New("signer unavailable")
	f.files.On("Insert", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "notes.pdf",
		Body:     strings.NewReader(pdfBody),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Nil(t, res.DownloadURL)
}

func TestUpload_TooLarge(t *testing.T) {
	f := newUploadFixture(t)
	body := http.MaxBytesReader(nil, io.NopCloser(strings.NewReader(strings.Repeat("a", 100))), 10)

	_, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "big.bin",
		Body:     body,
	})
	require.Error(t, err)
	assert.Equal(t, errs.ErrKindTooLarge, errs.KindOf(err))
	assert.Equal(t, 0, f.store.Len(testBucket))
	f.assertStagingEmpty(t)
}

func TestUpload_DefaultTTL(t *testing.T) {
	f := newUploadFixture(t)
	f.svc = NewUploadService(f.store, f.files, Options{Bucket: testBucket, StagingDir: f.staging}, logger.Nop())
	f.files.On("Insert", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "a.txt",
		Body:     strings.NewReader("a"),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultSignedURLTTL, f.store.lastTTL)
}

func TestUpload_PreStagedBody(t *testing.T) {
	f := newUploadFixture(t)
	f.files.On("Insert", mock.Anything, mock.MatchedBy(func(r *model.FileRecord) bool {
		return r.Size == int64(len(pdfBody))
	})).Return(nil)

	staged, err := f.svc.Stage(strings.NewReader(pdfBody))
	require.NoError(t, err)
	assert.Equal(t, int64(len(pdfBody)), staged.Size())

	_, err = f.svc.Upload(context.Background(), teacherID, UploadRequest{
		Filename: "notes.pdf",
		Body:     staged,
	})
	require.NoError(t, err)
	f.files.AssertExpectations(t)

	// the caller owns a pre-staged body
	entries, err := os.ReadDir(f.staging)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	staged.Discard()
	staged.Discard()
	f.assertStagingEmpty(t)
}
