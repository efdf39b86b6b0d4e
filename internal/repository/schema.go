package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
)

var requiredTables = []string{usersTable, filesTable}

// SchemaCheck reports whether the tables created by Migrate are present in
// the connected database. It doubles as a readiness probe.
type SchemaCheck struct {
	db database.DB
}

// NewSchemaCheck creates a SchemaCheck over db.
func NewSchemaCheck(db database.DB) *SchemaCheck {
	return &SchemaCheck{db: db}
}

// MissingTables lists the required tables that do not exist in the current
// schema (PostgreSQL) or database (MySQL).
func (c *SchemaCheck) MissingTables(ctx context.Context) ([]string, error) {
	current := "current_schema()"
	if c.db.Dialect() == database.DialectMySQL {
		current = "DATABASE()"
	}
	marks := make([]string, len(requiredTables))
	args := make([]any, len(requiredTables))
	for i, t := range requiredTables {
		marks[i] = c.db.Dialect().Placeholder(i + 1)
		args[i] = t
	}
	q := "SELECT table_name FROM information_schema.tables WHERE table_schema = " + current +
		" AND table_name IN (" + strings.Join(marks, ", ") + ")"

	rows, err := c.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "list tables", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "scan table name", err)
		}
		found = append(found, strings.ToLower(name))
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "list tables", err)
	}

	var missing []string
	for _, t := range requiredTables {
		if !slices.Contains(found, t) {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// Ping fails when the database is unreachable or a table is missing.
func (c *SchemaCheck) Ping(ctx context.Context) error {
	missing, err := c.MissingTables(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return errs.New(errs.ErrKindNotFound, fmt.Sprintf("missing tables: %s", strings.Join(missing, ", ")))
	}
	return nil
}
