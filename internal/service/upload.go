package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/filestore"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/repository"
)

// MaxFilenameLength bounds the original filename, in characters.
const MaxFilenameLength = 255

// UploadRequest is one file submitted for upload.
type UploadRequest struct {
	Filename    string
	Title       string // defaults to Filename
	Description string
	Body        io.Reader
}

// UploadResult is returned once the file record exists. DownloadURL is nil
// when signing failed after the record was written.
type UploadResult struct {
	ID          string
	DownloadURL *string
	Record      *model.FileRecord
}

// UploadService stores a blob and then its file record.
type UploadService struct {
	store   filestore.Store
	files   repository.FileRepository
	opts    Options
	log     *logger.Logger
	orphans prometheus.Counter
	now     func() time.Time
}

// NewUploadService wires an UploadService.
func NewUploadService(store filestore.Store, files repository.FileRepository, opts Options, log *logger.Logger) *UploadService {
	return &UploadService{
		store:   store,
		files:   files,
		opts:    opts.withDefaults(),
		log:     log.Component("upload_service"),
		orphans: OrphanedBlobs,
		now:     time.Now,
	}
}

// Upload stores req for the caller. Only teachers and admins may upload.
//
// The blob is written before the record. A blob write failure leaves
// nothing behind and returns ErrKindStorageWrite. A record insert failure
// leaves the blob orphaned and returns ErrKindMetadataWrite.
func (s *UploadService) Upload(ctx context.Context, id auth.Identity, req UploadRequest) (*UploadResult, error) {
	if err := auth.Authorize(id, model.RoleTeacher, model.RoleAdmin); err != nil {
		return nil, err
	}

	filename, err := cleanFilename(req.Filename)
	if err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "no file part")
	}

	staged, ok := req.Body.(*Staged)
	if !ok {
		if staged, err = s.Stage(req.Body); err != nil {
			return nil, err
		}
		defer staged.Discard()
	}

	fileID := uuid.New().String()
	key := fileID + "-" + filename
	size := staged.size

	contentType, err := sniff(staged.file, filename)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorageWrite, "read staged upload", err)
	}

	log := s.log.With().Str("file_id", fileID).Str("storage_key", key).Logger()

	if _, err := s.store.PutObject(ctx, s.opts.Bucket, key, staged.file, size, filestore.PutOptions{
		ContentType: contentType,
		Filename:    filename,
	}); err != nil {
		return nil, errs.Wrap(errs.ErrKindStorageWrite, "store blob", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = filename
	}

	rec := &model.FileRecord{
		ID:               fileID,
		Title:            title,
		Description:      req.Description,
		OwnerID:          id.UserID,
		CreatedAt:        s.now().UTC(),
		StorageKey:       key,
		OriginalFilename: filename,
		Size:             size,
		FileType:         FileType(filename),
	}

	if err := s.files.Insert(ctx, rec); err != nil {
		s.orphans.Inc()
		log.ErrorWith("file record insert failed, blob orphaned", err, map[string]any{
			"bucket": s.opts.Bucket,
			"size":   size,
		})
		return nil, errs.Wrap(errs.ErrKindMetadataWrite, "insert file record", err)
	}

	log.InfoWith("file uploaded", map[string]any{
		"owner_id":     id.UserID,
		"size":         humanize.Bytes(uint64(size)),
		"content_type": contentType,
	})

	res := &UploadResult{ID: fileID, Record: rec}
	url, err := s.store.PresignGetURL(ctx, s.opts.Bucket, key, s.opts.SignedURLTTL)
	if err != nil {
		log.WarnWith("presign after upload failed", err, nil)
		return res, nil
	}
	res.DownloadURL = &url
	return res, nil
}

// Staged is an upload spooled to a temporary file. Passing a *Staged as
// UploadRequest.Body skips the staging step inside Upload.
type Staged struct {
	file *os.File
	size int64
}

// Read reads the staged bytes.
func (st *Staged) Read(p []byte) (int, error) { return st.file.Read(p) }

// Size is the number of bytes staged.
func (st *Staged) Size() int64 { return st.size }

// Discard closes and removes the staging file. Safe to call more than once.
func (st *Staged) Discard() {
	_ = st.file.Close()
	_ = os.Remove(st.file.Name())
}

// Stage copies body into a temporary file in the staging directory and
// rewinds it. The caller must Discard the result. A body cut off by
// http.MaxBytesReader is ErrKindTooLarge.
func (s *UploadService) Stage(body io.Reader) (*Staged, error) {
	f, err := os.CreateTemp(s.opts.StagingDir, "entfiles-upload-*")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorageWrite, "create staging file", err)
	}
	st := &Staged{file: f}

	n, err := io.Copy(f, body)
	if err != nil {
		st.Discard()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.Wrap(errs.ErrKindTooLarge,
				"File exceeds the "+humanize.IBytes(uint64(tooLarge.Limit))+" upload limit", err)
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read upload body", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		st.Discard()
		return nil, errs.Wrap(errs.ErrKindStorageWrite, "rewind staging file", err)
	}
	st.size = n
	return st, nil
}

// sniff detects the content type of the staged bytes, falling back to the
// extension when the content is not recognised. f is rewound afterwards.
func sniff(f *os.File, filename string) (string, error) {
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if mt.Is(octetStream) {
		return ContentTypeFor(filename), nil
	}
	return mt.String(), nil
}

func cleanFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "filename empty")
	}
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return "", errs.New(errs.ErrKindInvalidInput, "filename empty")
	}
	if utf8.RuneCountInString(base) > MaxFilenameLength {
		return "", errs.New(errs.ErrKindInvalidInput, "filename too long")
	}
	return base, nil
}
