package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"go-lms/internal/model"
)

const requestIDHeader = "X-Request-ID"

// maxCapturedBody caps how much of an error response is kept for the log line.
const maxCapturedBody = 4 << 10

// Logging assigns a request ID and emits one line per request. Failures log the
// envelope's error code so a 4xx can be traced without a body dump.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		recorder := &logRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"bytes", recorder.written,
			"duration_ms", time.Since(started).Milliseconds(),
			"client_ip", extractClientIP(r),
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			attrs = append(attrs, "route", rctx.RoutePattern())
		}

		if recorder.status < http.StatusBadRequest {
			slog.Info("request", attrs...)
			return
		}

		if r.URL.RawQuery != "" {
			attrs = append(attrs, "query", r.URL.RawQuery)
		}
		var envelope model.APIResponse
		if json.Unmarshal(recorder.body.Bytes(), &envelope) == nil && envelope.Error != nil {
			attrs = append(attrs, "error_code", envelope.Error.Code, "error_message", envelope.Error.Message)
		}

		if recorder.status >= http.StatusInternalServerError {
			slog.Error("request", attrs...)
		} else {
			slog.Warn("request", attrs...)
		}
	})
}

type logRecorder struct {
	http.ResponseWriter
	status      int
	written     int
	body        bytes.Buffer
	wroteHeader bool
}

func (lr *logRecorder) WriteHeader(statusCode int) {
	if lr.wroteHeader {
		return
	}
	lr.status = statusCode
	lr.wroteHeader = true
	lr.ResponseWriter.WriteHeader(statusCode)
}

func (lr *logRecorder) Write(b []byte) (int, error) {
	lr.wroteHeader = true
	if lr.status >= http.StatusBadRequest && lr.body.Len() < maxCapturedBody {
		lr.body.Write(b)
	}
	n, err := lr.ResponseWriter.Write(b)
	lr.written += n
	return n, err
}

func (lr *logRecorder) Flush() {
	if f, ok := lr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lr *logRecorder) Unwrap() http.ResponseWriter {
	return lr.ResponseWriter
}
