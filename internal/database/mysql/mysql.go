// Package mysql implements database.DB for MySQL on top of database/sql.
package mysql

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // register driver
	"github.com/koustreak/entfiles/internal/database"
)

// Driver implements database.DB for MySQL using database/sql.
// *sql.DB is itself a pool, so Driver is safe for concurrent use.
type Driver struct {
	sqlDB *sql.DB
}

var _ database.DB = (*Driver)(nil)

// New opens and verifies the MySQL connection pool.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	sqlDB, err := buildPool(cfg)
	if err != nil {
		return nil, err
	}

	d := &Driver{sqlDB: sqlDB}

	if err := d.Ping(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Ping verifies the connection is alive
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.sqlDB.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close shuts down the connection pool
func (d *Driver) Close() {
	_ = d.sqlDB.Close()
}

// Dialect reports DialectMySQL.
func (d *Driver) Dialect() database.Dialect {
	return database.DialectMySQL
}

// Exec executes a statement returning rows affected
func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err, "rows affected unavailable")
	}
	return n, nil
}

// Query executes a query returning multiple rows
func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

// QueryRow executes a query returning a single row
func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &mysqlRow{row: d.sqlDB.QueryRowContext(ctx, query, args...)}
}

// --- mysqlRows wraps *sql.Rows ---

type mysqlRows struct{ rows *sql.Rows }

func (r *mysqlRows) Next() bool { return r.rows.Next() }
func (r *mysqlRows) Close()     { _ = r.rows.Close() }

func (r *mysqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

func (r *mysqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "row iteration failed")
	}
	return nil
}

// --- mysqlRow wraps *sql.Row ---

type mysqlRow struct{ row *sql.Row }

func (r *mysqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}
