package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/worksheetgen/internal/api/shared"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
)

// TraceMiddleware assigns each request a trace ID and a request scoped
// logger. The ID is echoed in the X-Request-ID response header.
// It should be applied early in the middleware chain.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := shared.TraceIDFromRequest(r)

			ctx := shared.SetTraceID(r.Context(), traceID)
			ctx = logger.WithRequestID(ctx, traceID)
			ctx = logger.WithLogger(ctx, base)

			w.Header().Set(shared.TraceIDHeader, traceID)

			logger.FromContext(ctx).Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
