package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/taskflow/internal/domain"
	appCtx "github.com/baechuer/taskflow/internal/pkg/context"
)

// Authenticator resolves an access token to the current caller. The role is
// read from the identity store, never from the token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Principal, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth verifies Authorization: Bearer <access_token> and injects the
// principal into the request context.
func Auth(authn Authenticator, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				writeErr(w, r, domain.ErrTokenMissing())
				return
			}

			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			p, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if strings.TrimSpace(p.UserID) == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			ctx := appCtx.WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the caller injected by Auth.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	return appCtx.PrincipalFrom(ctx)
}
