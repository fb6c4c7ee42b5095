package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func startJWKCache(wellknown string) (*jwk.Cache, error) {
	ctx := context.Background()

	c := jwk.NewCache(ctx)
	c.Register(wellknown, jwk.WithMinRefreshInterval(15*time.Minute))
	_, err := c.Refresh(ctx, wellknown)
	if err != nil {
		return nil, err
	}
	slog.Info("jwk cache started")
	return c, nil
}

// OidcAuth discovers the issuer's JWKS endpoint and validates bearer
// tokens on every request.
func OidcAuth(issuer string) func(next http.Handler) http.Handler {
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		panic(err)
	}
	var discovery struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&discovery); err != nil {
		panic(err)
	}
	wellknown := discovery.JWKSURL
	c, err := startJWKCache(wellknown)
	if err != nil {
		panic(err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyset, err := c.Get(r.Context(), wellknown)
			if err != nil {
				slog.Error("could not retrieve keyset", "error", err)
				http.Error(w, "internal server error validating authorization header", http.StatusInternalServerError)
				return
			}
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			_, err = jwt.ParseString(authHeader[7:], jwt.WithKeySet(keyset))
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}
			if jwt.IsValidationError(err) {
				slog.Error("jwt could not be validated", "error", err)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			slog.Error("jwt could not be parsed", "error", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
		})
	}
}
