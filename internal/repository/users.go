package repository

import (
	"context"
	"strings"
	"time"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/model"
)

var userColumns = []string{"id", "email", "password_hash", "name", "role", "registered_at"}

// UserRepository is the user half of the metadata store.
type UserRepository interface {
	Insert(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Users stores accounts in the users table.
type Users struct {
	base
}

var _ UserRepository = (*Users)(nil)

// NewUsers returns a Users repository. timeout bounds each statement; zero
// disables the bound.
func NewUsers(db database.DB, timeout time.Duration) *Users {
	return &Users{base{db: db, timeout: timeout}}
}

// Insert stores u. Emails are compared case-insensitively, so the address
// is lower-cased before it is written. A duplicate email is ErrKindConflict.
func (r *Users) Insert(ctx context.Context, u *model.User) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	sql, args, err := database.Insert(usersTable, r.db.Dialect()).
		Set("id", u.ID).
		Set("email", normalizeEmail(u.Email)).
		Set("password_hash", u.PasswordHash).
		Set("name", u.Name).
		Set("role", string(u.Role)).
		Set("registered_at", u.RegisteredAt.UTC()).
		Build()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return errs.Wrap(errs.KindOf(err), "insert user", err)
	}
	return nil
}

// FindByEmail returns the user with the given email, or ErrKindNotFound.
func (r *Users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	sql, args, err := database.Select(usersTable, r.db.Dialect()).
		Columns(userColumns...).
		Where("email", "=", normalizeEmail(email)).
		Limit(1).
		Build()
	if err != nil {
		return nil, err
	}

	var (
		u    model.User
		role string
	)
	err = r.db.QueryRow(ctx, sql, args...).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.RegisteredAt)
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "find user by email", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
