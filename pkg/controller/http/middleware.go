package http

import (
	"context"
	"net/http"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/utils/logging"
)

type ctxPrincipalKey struct{}

func contextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// principalFrom returns the authenticated principal, or nil when the request
// did not pass the auth middleware.
func principalFrom(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(ctxPrincipalKey{}).(*model.Principal)
	return p
}

// authMiddleware validates the bearer token for protected requests
func authMiddleware(authn *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authn.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				logging.From(r.Context()).Warn("authentication failed",
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
				)
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			ctx := contextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
