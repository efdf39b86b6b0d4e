package middleware

import (
	"net/http"
	"strings"

	apierrors "github.com/koustreak/entfiles/internal/api/errors"
	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
)

// Authenticator verifies bearer tokens. *auth.Gate implements it.
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the resulting identity in the request context.
func Authenticate(gate Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				apierrors.Respond(w, log, errs.New(errs.ErrKindUnauthenticated, "Missing or malformed Authorization header"))
				return
			}

			id, err := gate.Authenticate(token)
			if err != nil {
				apierrors.Respond(w, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after
// Authenticate.
func RequireRoles(log *logger.Logger, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				apierrors.Respond(w, log, errs.New(errs.ErrKindUnauthenticated, "Authentication required"))
				return
			}
			if err := auth.Authorize(id, roles...); err != nil {
				apierrors.Respond(w, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
