// Package auth issues and verifies access tokens and decides which roles may
// call which operations.
//
// Tokens are HS256 JWTs. Nothing about a session is kept server-side; the
// token itself carries the identity until it expires.
package auth

import (
	"context"
	"slices"

	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/model"
)

// Identity is the authenticated caller, as carried by a verified token.
type Identity struct {
	UserID string
	Email  string
	Role   model.Role
	Name   string
}

// Authorize returns ErrKindPermissionDenied when required is non-empty and
// the identity's role is not one of them.
func Authorize(id Identity, required ...model.Role) error {
	if len(required) == 0 || slices.Contains(required, id.Role) {
		return nil
	}
	return errs.New(errs.ErrKindPermissionDenied, "Insufficient permissions")
}

type contextKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
