package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/entfiles/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDuplicateEntry  = 1062
	errBadNull         = 1048
	errBadFieldError   = 1054
	errParseError      = 1064
	errAccessDenied    = 1045
	errConnRefused     = 2003
	errUnknownDatabase = 1049
)

// mapError converts a MySQL driver error into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		detail := fmt.Sprintf("%s: %s", msg, mysqlErr.Message)
		switch mysqlErr.Number {
		case errDuplicateEntry:
			return errs.Wrap(errs.ErrKindConflict, detail, err)
		case errBadNull:
			return errs.Wrap(errs.ErrKindInvalidInput, detail, err)
		case errAccessDenied, errConnRefused, errUnknownDatabase:
			return errs.Wrap(errs.ErrKindConnectionFailed, detail, err)
		case errBadFieldError, errParseError:
			return errs.Wrap(errs.ErrKindQueryFailed, detail, err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, detail, err)
	}

	// driver.ErrBadConn, network errors, closed pool …
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
