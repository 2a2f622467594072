package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 response instead of killing the
// connection, and logs the panic value with its stack.
func Recover(logger *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Errorw("panic while serving request",
					"url", r.URL.Path,
					"method", r.Method,
					"panic", v,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				body, _ := json.Marshal(map[string]string{"message": "internal server error"})
				w.Write(body)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
