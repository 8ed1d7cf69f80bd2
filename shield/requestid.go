package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ezwire/presskit/idgen"
)

const requestIDKey contextKey = "shield_request_id"

// RequestID returns middleware that tags each request with a short random
// ID, injected into the context, the X-Request-ID response header, and a
// per-request structured logger stored under LoggerKey.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	newID := idgen.NanoID(8)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := newID()
			w.Header().Set("X-Request-ID", id)

			reqLogger := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)
			reqLogger.Info("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID retrieves the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
