package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns every request a correlation id, echoes it in the
// response header, and stamps it on the request-scoped logger so downstream
// log lines can be tied back to a single call.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, id)
			ctx := logg.WithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
