// Package auth authenticates requests by bearer session token and injects
// the account ID into the request context.
package auth

import (
	"net/http"
	"strings"

	id "trustgate/pkg/domain"
	"trustgate/pkg/requestcontext"
)

// TokenVerifier checks a session token and returns the account it belongs to.
type TokenVerifier interface {
	Verify(token string) (id.AccountID, error)
}

// Optional injects the account ID when a valid bearer token is present and
// passes the request through untouched otherwise. Handlers that require a
// session check the context themselves.
func Optional(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if accountID, err := verifier.Verify(token); err == nil {
					r = r.WithContext(requestcontext.WithAccountID(r.Context(), accountID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
