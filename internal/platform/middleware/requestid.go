package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"demarc/pkg/requestcontext"
)

// RequestID assigns a correlation ID to every request, preferring the
// caller-provided header so collaborators can trace across systems.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
