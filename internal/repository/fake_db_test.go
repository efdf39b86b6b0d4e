package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records statements and replays canned rows.
type fakeDB struct {
	dialect database.Dialect
	execs   []execCall
	queries []execCall
	rows    [][]any
	execErr error
	rowErr  error
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close()                     {}
func (f *fakeDB) Dialect() database.Dialect  { return f.dialect }

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	f.execs = append(f.execs, execCall{sql, args})
	if f.execErr != nil {
		return 0, f.execErr
	}
	return 1, nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (database.Rows, error) {
	f.queries = append(f.queries, execCall{sql, args})
	if f.rowErr != nil {
		return nil, f.rowErr
	}
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) database.Row {
	f.queries = append(f.queries, execCall{sql, args})
	if f.rowErr != nil {
		return errRow{f.rowErr}
	}
	if len(f.rows) == 0 {
		return errRow{errs.New(errs.ErrKindNotFound, "no rows")}
	}
	return &fakeRows{rows: f.rows[:1], idx: 0}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type fakeRows struct {
	rows   [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Close()     { r.closed = true }
func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d columns into %d destinations", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}
