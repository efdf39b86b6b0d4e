package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/koustreak/entfiles/internal/errs"
)

// PasswordHasher hashes and checks passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is out of bcrypt's range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "hash password", err)
	}
	return string(hash), nil
}

// Verify reports ErrKindUnauthenticated when password does not match hash.
func (h *PasswordHasher) Verify(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return errs.New(errs.ErrKindUnauthenticated, "password mismatch")
	default:
		return errs.Wrap(errs.ErrKindUnauthenticated, "malformed password hash", err)
	}
}
