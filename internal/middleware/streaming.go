package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout bounds long-lived responses such as the event stream,
// which http.TimeoutHandler would buffer in full. The request context is
// cancelled after maxDuration, or once idleTimeout passes without a write.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			controller := http.NewResponseController(w)
			_ = controller.SetWriteDeadline(time.Now().Add(maxDuration))

			sw := &streamingWriter{ResponseWriter: w, idle: idleTimeout}
			sw.timer = time.AfterFunc(idleTimeout, func() {
				_ = controller.SetWriteDeadline(time.Now())
				cancel()
			})
			defer sw.stop()

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

type streamingWriter struct {
	http.ResponseWriter
	idle time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// touch pushes the idle deadline out. A timer that already fired stays fired.
func (sw *streamingWriter) touch() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return
	}
	if sw.timer.Stop() {
		sw.timer.Reset(sw.idle)
	}
}

func (sw *streamingWriter) stop() {
	sw.mu.Lock()
	sw.stopped = true
	sw.timer.Stop()
	sw.mu.Unlock()
}

func (sw *streamingWriter) Write(b []byte) (int, error) {
	sw.touch()
	return sw.ResponseWriter.Write(b)
}

func (sw *streamingWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *streamingWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
