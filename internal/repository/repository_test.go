package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		db := &fakeDB{dialect: database.DialectPostgres}
		require.NoError(t, Migrate(context.Background(), db))
		require.Len(t, db.execs, 3)
		assert.Contains(t, db.execs[1].sql, "CREATE TABLE IF NOT EXISTS files")
	})

	t.Run("mysql", func(t *testing.T) {
		db := &fakeDB{dialect: database.DialectMySQL}
		require.NoError(t, Migrate(context.Background(), db))
		require.Len(t, db.execs, 2)
		assert.Contains(t, db.execs[0].sql, "ENGINE=InnoDB")
	})

	t.Run("propagates kind", func(t *testing.T) {
		db := &fakeDB{execErr: errs.New(errs.ErrKindConnectionFailed, "down")}
		err := Migrate(context.Background(), db)
		assert.True(t, errs.IsConnectionFailed(err))
	})
}

func TestUsers_Insert(t *testing.T) {
	db := &fakeDB{dialect: database.DialectPostgres}
	users := NewUsers(db, time.Second)

	err := users.Insert(context.Background(), &model.User{
		ID:           "u-1",
		Email:        "  Prof@School.EDU ",
		PasswordHash: "hash",
		Name:         "Prof",
		Role:         model.RoleTeacher,
		RegisteredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	assert.True(t, strings.HasPrefix(db.execs[0].sql, `INSERT INTO "users"`))
	assert.Equal(t, "prof@school.edu", db.execs[0].args[1])
	assert.Equal(t, "teacher", db.execs[0].args[4])
}

func TestUsers_InsertDuplicate(t *testing.T) {
	db := &fakeDB{execErr: errs.New(errs.ErrKindConflict, "duplicate")}
	err := NewUsers(db, 0).Insert(context.Background(), &model.User{ID: "u-1"})
	assert.True(t, errs.IsConflict(err))
}

func TestUsers_FindByEmail(t *testing.T) {
	registered := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{
		dialect: database.DialectMySQL,
		rows:    [][]any{{"u-1", "prof@school.edu", "hash", "Prof", "admin", registered}},
	}

	u, err := NewUsers(db, 0).FindByEmail(context.Background(), "PROF@school.edu")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, registered, u.RegisteredAt)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].sql, "WHERE `email` = ?")
	assert.Equal(t, []any{"prof@school.edu", 1}, db.queries[0].args)
}

func TestUsers_FindByEmailMissing(t *testing.T) {
	_, err := NewUsers(&fakeDB{}, 0).FindByEmail(context.Background(), "nobody@x")
	assert.True(t, errs.IsNotFound(err))
}

func fileRow(id string, created time.Time) []any {
	return []any{id, "Notes", "week 1", "u-1", created, id + "-notes.pdf", "notes.pdf", int64(512000), "pdf"}
}

func TestFiles_InsertAndFind(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{dialect: database.DialectPostgres, rows: [][]any{fileRow("f-1", created)}}
	files := NewFiles(db, time.Second)

	rec := &model.FileRecord{
		ID: "f-1", Title: "Notes", Description: "week 1", OwnerID: "u-1", CreatedAt: created,
		StorageKey: "f-1-notes.pdf", OriginalFilename: "notes.pdf", Size: 512000, FileType: "pdf",
	}
	require.NoError(t, files.Insert(context.Background(), rec))
	require.Len(t, db.execs, 1)
	assert.Len(t, db.execs[0].args, 9)

	got, err := files.FindByID(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestFiles_FindByIDMissing(t *testing.T) {
	_, err := NewFiles(&fakeDB{}, 0).FindByID(context.Background(), "f-404")
	assert.True(t, errs.IsNotFound(err))
}

func TestFiles_List(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	db := &fakeDB{dialect: database.DialectPostgres, rows: [][]any{fileRow("f-2", t2), fileRow("f-1", t1)}}

	records, err := NewFiles(db, 0).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "f-2", records[0].ID)
	assert.Contains(t, db.queries[0].sql, `ORDER BY "created_at" DESC, "id" ASC`)
}

func TestFiles_ListEmpty(t *testing.T) {
	records, err := NewFiles(&fakeDB{}, 0).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFiles_ListQueryError(t *testing.T) {
	db := &fakeDB{rowErr: errs.Wrap(errs.ErrKindConnectionFailed, "down", errors.New("refused"))}
	_, err := NewFiles(db, 0).List(context.Background())
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestSchemaCheck(t *testing.T) {
	tests := []struct {
		name    string
		dialect database.Dialect
		rows    [][]any
		missing []string
		sql     string
	}{
		{"postgres complete", database.DialectPostgres, [][]any{{"users"}, {"files"}}, nil,
			"table_schema = current_schema() AND table_name IN ($1, $2)"},
		{"mysql uppercase names", database.DialectMySQL, [][]any{{"USERS"}}, []string{"files"},
			"table_schema = DATABASE() AND table_name IN (?, ?)"},
		{"empty database", database.DialectPostgres, nil, []string{"users", "files"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{dialect: tt.dialect, rows: tt.rows}
			check := NewSchemaCheck(db)

			missing, err := check.MissingTables(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.missing, missing)
			assert.Equal(t, []any{"users", "files"}, db.queries[0].args)
			assert.Contains(t, db.queries[0].sql, tt.sql)

			if tt.missing == nil {
				assert.NoError(t, check.Ping(context.Background()))
			} else {
				err := check.Ping(context.Background())
				assert.True(t, errs.IsNotFound(err))
				assert.ErrorContains(t, err, "missing tables")
			}
		})
	}
}

func TestSchemaCheck_QueryError(t *testing.T) {
	db := &fakeDB{rowErr: errs.New(errs.ErrKindConnectionFailed, "refused")}

	err := NewSchemaCheck(db).Ping(context.Background())
	assert.True(t, errs.IsConnectionFailed(err))
}
