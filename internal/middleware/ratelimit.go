package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGeneralRPM = 100
	defaultAuthRPM    = 10
	// clients idle longer than this are forgotten once the table grows.
	clientIdleTTL   = 10 * time.Minute
	sweepThreshold  = 1000
	authRoutePrefix = "/api/v1/auth"
)

var unlimitedPaths = map[string]bool{"/health": true, "/metrics": true}

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps a token bucket per client IP. Auth routes draw
// from a separate, stricter bucket.
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimitMiddleware builds the limiter. Zero selects the default rate and
// a negative general rate disables general limiting.
func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if generalRPM == 0 {
		generalRPM = defaultGeneralRPM
	}
	if authRPM <= 0 {
		authRPM = defaultAuthRPM
	}
	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    make(map[string]*clientLimiter),
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unlimitedPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if !m.allow(extractClientIP(r), strings.HasPrefix(strings.ToLower(r.URL.Path), authRoutePrefix)) {
			w.Header().Set("Retry-After", "60")
			writeErrorJSON(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) allow(clientIP string, authRoute bool) bool {
	now := time.Now()

	m.mu.Lock()
	client, ok := m.clients[clientIP]
	if !ok {
		if len(m.clients) >= sweepThreshold {
			m.sweepLocked(now)
		}
		client = &clientLimiter{general: perMinute(m.generalRPM), auth: perMinute(m.authRPM)}
		m.clients[clientIP] = client
	}
	client.lastSeen = now
	m.mu.Unlock()

	if authRoute {
		return client.auth.AllowN(now, 1)
	}
	return client.general.AllowN(now, 1)
}

func (m *RateLimitMiddleware) sweepLocked(now time.Time) {
	cutoff := now.Add(-clientIdleTTL)
	for ip, client := range m.clients {
		if client.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// perMinute returns a limiter allowing rpm requests per minute with an equal
// burst. A negative rpm disables limiting.
func perMinute(rpm int) *rate.Limiter {
	if rpm < 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the socket peer.
func extractClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}
