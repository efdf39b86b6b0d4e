package service

import (
	"context"
	"strings"
	"time"

	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/repository"
)

// InvalidCredentials is the only message a failed login reveals.
const InvalidCredentials = "Invalid credentials"

// TokenIssuer signs access tokens. *auth.Gate implements it.
type TokenIssuer interface {
	Issue(u *model.User) (string, time.Time, error)
}

// PasswordVerifier checks a password against a stored hash.
// *auth.PasswordHasher implements it.
type PasswordVerifier interface {
	Verify(password, hash string) error
}

// LoginResult is a signed token and the user it was issued to.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *model.User
}

// AuthService checks credentials and issues tokens.
type AuthService struct {
	users     repository.UserRepository
	passwords PasswordVerifier
	tokens    TokenIssuer
	log       *logger.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(users repository.UserRepository, passwords PasswordVerifier, tokens TokenIssuer, log *logger.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		log:       log.Component("auth_service"),
	}
}

// Login exchanges an email and password for an access token. Unknown
// emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.New(errs.ErrKindUnauthenticated, InvalidCredentials)
		}
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "find user", err)
	}

	if err := s.passwords.Verify(password, u.PasswordHash); err != nil {
		s.log.With().Str("user_id", u.ID).Logger().Debug("password mismatch")
		return nil, errs.Wrap(errs.ErrKindUnauthenticated, InvalidCredentials, err)
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "issue token", err)
	}

	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}
