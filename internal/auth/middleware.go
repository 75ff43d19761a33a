package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-marketplace/internal/models"
)

type contextKey string

const callerEmailKey contextKey = "caller_email"

// UserBootstrap records a caller on first sight so role checks further down
// always find a row.
type UserBootstrap interface {
	EnsureUser(ctx context.Context, email string, role models.Role) error
}

// Middleware verifies the bearer credential and places the caller's verified
// email into the request context. With OIDC_ISSUER set, tokens are verified
// against the provider; without it the email claim is trusted unverified,
// which is only acceptable for local development.
func Middleware(cache *TokenCache, users UserBootstrap) func(http.Handler) http.Handler {
	issuer := os.Getenv("OIDC_ISSUER")

	var verifier *oidc.IDTokenVerifier
	if issuer != "" {
		provider, err := oidc.NewProvider(context.Background(), issuer)
		if err != nil {
			panic(fmt.Sprintf("Failed to create OIDC provider: %v", err))
		}
		verifier = provider.Verifier(&oidc.Config{
			SkipClientIDCheck: true,
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if cache != nil {
				if email, ok := cache.Lookup(r.Context(), rawToken); ok {
					next.ServeHTTP(w, r.WithContext(withCallerEmail(r.Context(), email)))
					return
				}
			}

			var email string
			if verifier != nil {
				idToken, err := verifier.Verify(r.Context(), rawToken)
				if err != nil {
					http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
					return
				}

				var claims struct {
					Email string `json:"email"`
				}
				if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
					http.Error(w, "email claim missing from token", http.StatusUnauthorized)
					return
				}
				email = claims.Email
			} else {
				email, err = ExtractEmailFromJWT(rawToken)
				if err != nil {
					http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
					return
				}
			}

			if cache != nil {
				cache.Store(r.Context(), rawToken, email)
			}
			if users != nil {
				// Best effort: a failed bootstrap surfaces as NotFound at the
				// first role check instead of failing the request here.
				_ = users.EnsureUser(r.Context(), email, models.RoleUser)
			}

			next.ServeHTTP(w, r.WithContext(withCallerEmail(r.Context(), email)))
		})
	}
}

func withCallerEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, callerEmailKey, email)
}

// CallerEmail returns the verified email of the caller, or "" outside the
// middleware.
func CallerEmail(ctx context.Context) string {
	if email, ok := ctx.Value(callerEmailKey).(string); ok {
		return email
	}
	return ""
}
