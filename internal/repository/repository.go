// Package repository maps users and file records onto the metadata store.
//
// The metadata store is reached only through database.DB, so the same
// repositories serve PostgreSQL and MySQL; statements are built with the
// dialect-aware builders from the database package.
package repository

import (
	"context"
	"time"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
)

const (
	usersTable = "users"
	filesTable = "files"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            VARCHAR(36)  PRIMARY KEY,
		email         VARCHAR(320) NOT NULL UNIQUE,
		password_hash TEXT         NOT NULL,
		name          TEXT         NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		registered_at TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id                VARCHAR(36)  PRIMARY KEY,
		title             TEXT         NOT NULL,
		description       TEXT         NOT NULL,
		owner_id          VARCHAR(36)  NOT NULL,
		created_at        TIMESTAMPTZ  NOT NULL,
		storage_key       VARCHAR(768) NOT NULL UNIQUE,
		original_filename TEXT         NOT NULL,
		size_bytes        BIGINT       NOT NULL,
		file_type         VARCHAR(64)  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS files_created_at_idx ON files (created_at)`,
}

var mysqlSchema = []string{
	"CREATE TABLE IF NOT EXISTS `users` (" +
		"`id` VARCHAR(36) NOT NULL PRIMARY KEY," +
		"`email` VARCHAR(320) NOT NULL," +
		"`password_hash` TEXT NOT NULL," +
		"`name` TEXT NOT NULL," +
		"`role` VARCHAR(16) NOT NULL," +
		"`registered_at` DATETIME(6) NOT NULL," +
		"UNIQUE KEY `users_email_uq` (`email`)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	"CREATE TABLE IF NOT EXISTS `files` (" +
		"`id` VARCHAR(36) NOT NULL PRIMARY KEY," +
		"`title` TEXT NOT NULL," +
		"`description` TEXT NOT NULL," +
		"`owner_id` VARCHAR(36) NOT NULL," +
		"`created_at` DATETIME(6) NOT NULL," +
		"`storage_key` VARCHAR(768) NOT NULL," +
		"`original_filename` TEXT NOT NULL," +
		"`size_bytes` BIGINT NOT NULL," +
		"`file_type` VARCHAR(64) NOT NULL," +
		"UNIQUE KEY `files_storage_key_uq` (`storage_key`)," +
		"KEY `files_created_at_idx` (`created_at`)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
}

// Migrate creates the users and files tables when missing. It is safe to
// run on every start.
func Migrate(ctx context.Context, db database.DB) error {
	stmts := postgresSchema
	if db.Dialect() == database.DialectMySQL {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindOf(err), "schema migration failed", err)
		}
	}
	return nil
}

// base carries what every repository needs.
type base struct {
	db      database.DB
	timeout time.Duration
}

// bound applies the per-statement timeout, if one is configured.
func (b base) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}
