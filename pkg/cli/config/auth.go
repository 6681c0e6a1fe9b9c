package config

import (
	"context"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	httpctrl "github.com/clinsec-lab/asklepios/pkg/controller/http"
	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
)

// Auth holds CLI flags for bearer token verification. Exactly one of the
// JWKS URL or the HMAC secret must be set.
type Auth struct {
	jwksURL    string
	hmacSecret string
}

// Flags returns CLI flags for auth configuration
func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-jwks-url",
			Usage:       "JWKS endpoint of the identity provider",
			Category:    "Authentication",
			Sources:     cli.EnvVars("ASKLEPIOS_AUTH_JWKS_URL"),
			Destination: &a.jwksURL,
		},
		&cli.StringFlag{
			Name:        "auth-hmac-secret",
			Usage:       "Shared HMAC secret for token verification (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("ASKLEPIOS_AUTH_HMAC_SECRET"),
			Destination: &a.hmacSecret,
		},
	}
}

// Configure builds the request authenticator. With a JWKS URL the key set is
// fetched and kept fresh by jwk.Cache for the lifetime of ctx.
func (a *Auth) Configure(ctx context.Context, principals interfaces.PrincipalRepository) (*httpctrl.Authenticator, error) {
	switch {
	case a.jwksURL != "" && a.hmacSecret != "":
		return nil, goerr.New("auth-jwks-url and auth-hmac-secret are mutually exclusive")

	case a.jwksURL != "":
		cache := jwk.NewCache(ctx)
		if err := cache.Register(a.jwksURL); err != nil {
			return nil, goerr.Wrap(err, "failed to register JWKS URL", goerr.V("url", a.jwksURL))
		}
		if _, err := cache.Refresh(ctx, a.jwksURL); err != nil {
			return nil, goerr.Wrap(err, "failed to fetch JWKS", goerr.V("url", a.jwksURL))
		}
		keySet := jwk.NewCachedSet(cache, a.jwksURL)
		return httpctrl.NewAuthenticatorWithKeySet(keySet, principals), nil

	case a.hmacSecret != "":
		return httpctrl.NewAuthenticator([]byte(a.hmacSecret), principals), nil

	default:
		return nil, goerr.New("either auth-jwks-url or auth-hmac-secret is required")
	}
}
