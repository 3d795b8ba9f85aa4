package strand

import (
	"context"
	"net/http"
	"time"
)

// Timeout returns middleware that bounds the request context. Handlers that
// honor ctx cancellation stop at the deadline; the error they return then
// surfaces through the normal error path.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
