package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			// Let the server abort the connection as it would without us.
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			slog.Error("panic recovered",
				"error", recovered,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", w.Header().Get(requestIDHeader),
				"stack", string(debug.Stack()),
			)
			writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
		}()

		next.ServeHTTP(w, r)
	})
}
