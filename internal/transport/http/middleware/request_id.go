package middleware

import (
	"net/http"

	"github.com/google/uuid"

	appCtx "github.com/omnisphere/auth-service/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID propagates the caller's X-Request-Id or generates one, echoing
// it on the response and stashing it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderXRequestID, id)

		next.ServeHTTP(w, r.WithContext(appCtx.WithRequestID(r.Context(), id)))
	})
}
