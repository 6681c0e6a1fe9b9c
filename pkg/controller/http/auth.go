package http

import (
	"context"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

var (
	ErrNoAuthenticator = goerr.New("authenticator is required")
	errInvalidToken    = goerr.New("invalid bearer token")
)

// Authenticator verifies a bearer JWT and resolves the caller to a stored
// principal. The token carries identity only; roles and grants always come
// from the principal store, so a stale or tampered claim set cannot widen
// access.
type Authenticator struct {
	secret     []byte
	keySet     jwk.Set
	principals interfaces.PrincipalRepository
}

// NewAuthenticator verifies tokens with an HMAC shared secret.
func NewAuthenticator(secret []byte, principals interfaces.PrincipalRepository) *Authenticator {
	return &Authenticator{
		secret:     secret,
		principals: principals,
	}
}

// NewAuthenticatorWithKeySet verifies tokens against a JWKS, typically served
// by an identity provider and refreshed by jwk.Cache.
func NewAuthenticatorWithKeySet(keySet jwk.Set, principals interfaces.PrincipalRepository) *Authenticator {
	return &Authenticator{
		keySet:     keySet,
		principals: principals,
	}
}

// Authenticate parses the Authorization header value and returns the
// principal it identifies.
func (a *Authenticator) Authenticate(ctx context.Context, authHeader string) (*model.Principal, error) {
	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || raw == "" {
		return nil, goerr.Wrap(errInvalidToken, "missing bearer token")
	}

	parseOpts := []jwt.ParseOption{jwt.WithValidate(true)}
	if a.keySet != nil {
		parseOpts = append(parseOpts, jwt.WithKeySet(a.keySet))
	} else {
		parseOpts = append(parseOpts, jwt.WithKey(jwa.HS256, a.secret))
	}

	token, err := jwt.Parse([]byte(raw), parseOpts...)
	if err != nil {
		return nil, goerr.Wrap(errInvalidToken, "token verification failed")
	}

	sub := token.Subject()
	if sub == "" {
		return nil, goerr.Wrap(errInvalidToken, "token has no subject")
	}

	principal, err := a.principals.Get(ctx, types.PrincipalID(sub))
	if err != nil {
		return nil, goerr.Wrap(errInvalidToken, "unknown principal",
			goerr.V("principalID", sub),
		)
	}

	return principal, nil
}
