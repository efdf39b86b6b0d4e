package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/model"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 15 * time.Minute

// Claims is the JWT payload. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

// Gate signs tokens at login and verifies them on every request.
type Gate struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewGate creates a Gate. An empty secret is rejected; a non-positive ttl
// falls back to DefaultTokenTTL.
func NewGate(secret string, ttl time.Duration) (*Gate, error) {
	if secret == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Gate{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports the lifetime of issued tokens.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Issue signs an access token for u and returns it with its expiry.
func (g *Gate) Issue(u *model.User) (string, time.Time, error) {
	now := g.now()
	expiresAt := now.Add(g.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: u.Email,
		Role:  string(u.Role),
		Name:  u.Name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, errs.Wrap(errs.ErrKindUnknown, "sign token", err)
	}
	return signed, expiresAt, nil
}

// Authenticate verifies token and returns the identity it carries. Any
// failure (empty, malformed, wrong key or algorithm, expired) is
// ErrKindUnauthenticated.
func (g *Gate) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, errs.New(errs.ErrKindUnauthenticated, "missing token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, g.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return Identity{}, errs.Wrap(errs.ErrKindUnauthenticated, msg, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, errs.New(errs.ErrKindUnauthenticated, "invalid token")
	}

	role := model.Role(claims.Role)
	if !role.Valid() {
		return Identity{}, errs.New(errs.ErrKindUnauthenticated, "unknown role in token")
	}

	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
		Name:   claims.Name,
	}, nil
}

func (g *Gate) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
	}
	return g.secret, nil
}
