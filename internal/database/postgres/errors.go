package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/entfiles/internal/errs"
)

// PostgreSQL SQLSTATE codes the service reacts to.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrUniqueViolation = "23505"
	pgErrNotNull         = "23502"
	pgErrInvalidText     = "22P02"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		detail := fmt.Sprintf("%s: %s", msg, pgErr.Message)
		switch {
		case pgErr.Code == pgErrUniqueViolation:
			return errs.Wrap(errs.ErrKindConflict, detail, err)
		case pgErr.Code == pgErrNotNull, pgErr.Code == pgErrInvalidText:
			return errs.Wrap(errs.ErrKindInvalidInput, detail, err)
		// Class 08 — connection exceptions
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return errs.Wrap(errs.ErrKindConnectionFailed, detail, err)
		// Class 28 — invalid authorization
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28":
			return errs.Wrap(errs.ErrKindConnectionFailed, detail, err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, detail, err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
