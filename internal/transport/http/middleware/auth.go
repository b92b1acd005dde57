package middleware

import (
	"net/http"
	"strings"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/domain"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.TokenClaims, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrTokenMissing()
	}
	scheme, rest, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.ErrTokenInvalid()
	}
	token := strings.TrimSpace(rest)
	if token == "" {
		return "", domain.ErrTokenInvalid()
	}
	return token, nil
}

// Auth verifies the bearer access token and injects the user id into the
// request context.
func Auth(verifier TokenVerifier, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if strings.TrimSpace(claims.UserID) == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID)))
		})
	}
}
