// file: internal/middleware/recovery.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"sidequest/internal/contextutils"
	"sidequest/internal/response"
)

// RecoverPanic turns a panic into a 500 envelope and logs the stack
func RecoverPanic(builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http uses this to abort a response on purpose
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestLogger := contextutils.Logger(r.Context(), logger)
				requestLogger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)

				builder.WriteInternalServerError(w, r, "")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
