package repository

import (
	"context"
	"time"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/model"
)

var fileColumns = []string{
	"id", "title", "description", "owner_id", "created_at",
	"storage_key", "original_filename", "size_bytes", "file_type",
}

// FileRepository is the file-record half of the metadata store.
type FileRepository interface {
	Insert(ctx context.Context, f *model.FileRecord) error
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)
	List(ctx context.Context) ([]model.FileRecord, error)
}

// Files stores file records in the files table.
type Files struct {
	base
}

var _ FileRepository = (*Files)(nil)

// NewFiles returns a Files repository. timeout bounds each statement; zero
// disables the bound.
func NewFiles(db database.DB, timeout time.Duration) *Files {
	return &Files{base{db: db, timeout: timeout}}
}

// Insert writes f. A storage key collision is ErrKindConflict.
func (r *Files) Insert(ctx context.Context, f *model.FileRecord) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	sql, args, err := database.Insert(filesTable, r.db.Dialect()).
		Set("id", f.ID).
		Set("title", f.Title).
		Set("description", f.Description).
		Set("owner_id", f.OwnerID).
		Set("created_at", f.CreatedAt.UTC()).
		Set("storage_key", f.StorageKey).
		Set("original_filename", f.OriginalFilename).
		Set("size_bytes", f.Size).
		Set("file_type", f.FileType).
		Build()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return errs.Wrap(errs.KindOf(err), "insert file record", err)
	}
	return nil
}

// FindByID returns the record with the given id, or ErrKindNotFound.
func (r *Files) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	sql, args, err := database.Select(filesTable, r.db.Dialect()).
		Columns(fileColumns...).
		Where("id", "=", id).
		Limit(1).
		Build()
	if err != nil {
		return nil, err
	}

	f, err := scanFile(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "find file by id", err)
	}
	return f, nil
}

// List returns every record, newest first. Ties on created_at are broken
// by id so the order is stable between calls.
func (r *Files) List(ctx context.Context) ([]model.FileRecord, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	sql, args, err := database.Select(filesTable, r.db.Dialect()).
		Columns(fileColumns...).
		OrderBy("created_at", database.Desc).
		OrderBy("id", database.Asc).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "list files", err)
	}
	defer rows.Close()

	records := make([]model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), "list files", err)
		}
		records = append(records, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "list files", err)
	}
	return records, nil
}

func scanFile(row database.Row) (*model.FileRecord, error) {
	var f model.FileRecord
	err := row.Scan(
		&f.ID, &f.Title, &f.Description, &f.OwnerID, &f.CreatedAt,
		&f.StorageKey, &f.OriginalFilename, &f.Size, &f.FileType,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
