package middleware

import (
	"context"
	"net/http"

	"minimart/pkg/uid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey contextKey = "request_id"

// RequestID tags every debug request with a correlation id, minted
// unless the caller supplied one. The id is echoed in the response
// header and picked up by the logging middleware.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uid.New()
		}

		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), RequestIDKey, requestID)))
	})
}

// GetRequestID retrieves the request ID from context, empty when the
// request never passed through the middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
