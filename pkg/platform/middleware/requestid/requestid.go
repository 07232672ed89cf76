// Package requestid assigns each request an ID for log correlation.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"trustgate/pkg/requestcontext"
)

// Header carries the request ID on requests and responses.
const Header = "X-Request-Id"

// Middleware reuses the caller-supplied request ID or generates one, stores
// it in the context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
