package service

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/filestore"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/repository"
)

// FileSummary is one entry of the file listing.
type FileSummary struct {
	ID          string
	Title       string
	Description string
	Author      string
	Filename    string
	Size        int64
	FileType    string
	CreatedAt   time.Time
	DownloadURL *string
}

// FetchResult is a file record together with a freshly signed URL.
type FetchResult struct {
	Record      *model.FileRecord
	DownloadURL string
}

// FileService lists and fetches stored files.
type FileService struct {
	store filestore.Store
	files repository.FileRepository
	opts  Options
	log   *logger.Logger
}

// NewFileService wires a FileService.
func NewFileService(store filestore.Store, files repository.FileRepository, opts Options, log *logger.Logger) *FileService {
	return &FileService{
		store: store,
		files: files,
		opts:  opts.withDefaults(),
		log:   log.Component("file_service"),
	}
}

// List returns every file, newest first. Records are loaded up front; the
// download URL of each entry is signed while the sequence is ranged over,
// and ranging again signs again. An entry whose blob cannot be found or
// signed gets a nil DownloadURL instead of failing the listing.
func (s *FileService) List(ctx context.Context, id auth.Identity) (iter.Seq[FileSummary], error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	records, err := s.files.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "list file records", err)
	}

	return func(yield func(FileSummary) bool) {
		for i := range records {
			if !yield(s.summarize(ctx, &records[i])) {
				return
			}
		}
	}, nil
}

func (s *FileService) summarize(ctx context.Context, rec *model.FileRecord) FileSummary {
	sum := FileSummary{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Author:      rec.OwnerID,
		Filename:    rec.OriginalFilename,
		Size:        rec.Size,
		FileType:    rec.FileType,
		CreatedAt:   rec.CreatedAt,
	}

	if _, err := s.store.StatObject(ctx, s.opts.Bucket, rec.StorageKey); err != nil {
		s.log.WarnWith("blob unavailable for listed file", err, map[string]any{
			"file_id":     rec.ID,
			"storage_key": rec.StorageKey,
		})
		return sum
	}

	url, err := s.store.PresignGetURL(ctx, s.opts.Bucket, rec.StorageKey, s.opts.SignedURLTTL)
	if err != nil {
		s.log.WarnWith("presign failed for listed file", err, map[string]any{
			"file_id":     rec.ID,
			"storage_key": rec.StorageKey,
		})
		return sum
	}
	sum.DownloadURL = &url
	return sum
}

// Fetch looks up fileID and signs a download URL for it. A malformed or
// unknown id is ErrKindNotFound; a signing failure is ErrKindStorageRead.
func (s *FileService) Fetch(ctx context.Context, id auth.Identity, fileID string) (*FetchResult, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(fileID)
	if err != nil {
		return nil, errs.New(errs.ErrKindNotFound, "File not found")
	}

	rec, err := s.files.FindByID(ctx, parsed.String())
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "File not found", err)
		}
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "find file record", err)
	}

	url, err := s.store.PresignGetURL(ctx, s.opts.Bucket, rec.StorageKey, s.opts.SignedURLTTL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorageRead, "sign download url", err)
	}

	return &FetchResult{Record: rec, DownloadURL: url}, nil
}

// Open starts streaming the blob behind rec. The caller must close the
// returned object. Any failure, including a missing blob, is
// ErrKindStorageRead.
func (s *FileService) Open(ctx context.Context, rec *model.FileRecord) (filestore.Object, error) {
	obj, err := s.store.GetObject(ctx, s.opts.Bucket, rec.StorageKey)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorageRead, "open blob", err)
	}
	return obj, nil
}

func requireIdentity(id auth.Identity) error {
	if id.UserID == "" {
		return errs.New(errs.ErrKindUnauthenticated, "authentication required")
	}
	return nil
}
