package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	handler := NewRateLimitMiddleware(-1, 1).Handler(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	handler := NewRateLimitMiddleware(-1, 1).Handler(okHandler())

	// Burst equals the per-minute rate, so the second immediate call is rejected.
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/api/v1/auth/recovery", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/auth/recovery", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))
	assert.Contains(t, rec2.Body.String(), "RATE_LIMITED")
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 1).Handler(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
		req.Header.Set("X-Forwarded-For", ip+", 192.168.1.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}

func TestRateLimitMiddleware_ExemptsProbes(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 1).Handler(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware_Configuration(t *testing.T) {
	mw := NewRateLimitMiddleware(0, 0)
	assert.Equal(t, 100, mw.generalRPM)
	assert.Equal(t, 10, mw.authRPM)

	mw = NewRateLimitMiddleware(-1, 5)
	assert.Equal(t, -1, mw.generalRPM)
	assert.Equal(t, 5, mw.authRPM)
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": " 10.1.1.1 , 10.2.2.2"}, remote: "1.1.1.1:80", want: "10.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.3.3.3"}, remote: "1.1.1.1:80", want: "10.3.3.3"},
		{name: "peer", remote: "1.1.1.1:80", want: "1.1.1.1"},
		{name: "bare peer", remote: "1.1.1.1", want: "1.1.1.1"},
		{name: "empty", remote: "", want: "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, extractClientIP(req))
		})
	}
}
