package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-lms/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds a request and answers 503 with the standard envelope when
// the deadline passes. Streaming routes use StreamingTimeout instead.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.Failure("REQUEST_TIMEOUT", "request timed out", ""))

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
