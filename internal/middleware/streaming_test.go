package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamingTimeout_IdleCancelsContext(t *testing.T) {
	done := make(chan struct{})
	handler := StreamingTimeout(time.Minute, 30*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data: hello\n\n"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(done)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me/events", nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle timeout did not cancel the request")
	}
	assert.Equal(t, "data: hello\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestStreamingTimeout_WritesKeepStreamAlive(t *testing.T) {
	handler := StreamingTimeout(time.Minute, 250*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 4; i++ {
			time.Sleep(20 * time.Millisecond)
			require.NoError(t, r.Context().Err())
			_, _ = w.Write([]byte(":\n"))
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, ":\n:\n:\n:\n", rec.Body.String())
}
