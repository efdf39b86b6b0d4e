package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"no rows", pgx.ErrNoRows, errs.ErrKindNotFound},
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"unique", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, errs.ErrKindConflict},
		{"bad uuid text", &pgconn.PgError{Code: "22P02"}, errs.ErrKindInvalidInput},
		{"connection class", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnectionFailed},
		{"auth class", &pgconn.PgError{Code: "28P01"}, errs.ErrKindConnectionFailed},
		{"syntax", &pgconn.PgError{Code: "42601"}, errs.ErrKindQueryFailed},
		{"network", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestBuildDSN(t *testing.T) {
	cfg := database.DefaultConfig(database.DriverPostgres)
	cfg.User = "app"
	cfg.Password = "p@ss:word"
	cfg.Host = "db"

	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/projet_est?sslmode=disable", buildDSN(cfg))
}
