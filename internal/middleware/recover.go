package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/fundlane/edgegate/internal/apierror"
)

// Recover returns middleware that catches panics escaping the handler
// stack, logs the stack trace, and returns the fixed 500 body instead
// of crashing the server. The pipeline has its own boundary; this is
// the last line for the origin handlers and the server plumbing.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					apierror.Write(w, apierror.Internal())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
